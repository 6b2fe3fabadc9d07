//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

package team

import (
	"fmt"
	"strings"
	"sync"

	"github.com/notebook-ai/nbagent/model"
)

// planningMessages builds the lead's planning prompt: team identity, the
// roster with member descriptions, the policy directives, and the plan
// format contract.
func (t *Team) planningMessages(input string) []model.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the lead of the team %q.", t.name)
	if t.description != "" {
		fmt.Fprintf(&sb, " %s", t.description)
	}
	sb.WriteString("\n\nTeam members:\n")
	for _, m := range t.members {
		info := m.Info()
		if info.Description != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", info.Name, info.Description)
		} else {
			fmt.Fprintf(&sb, "- %s\n", info.Name)
		}
	}
	if len(t.policyInstructions) > 0 {
		sb.WriteString("\nTeam policy:\n")
		for _, instruction := range t.policyInstructions {
			fmt.Fprintf(&sb, "- %s\n", instruction)
		}
	}
	sb.WriteString("\n")
	sb.WriteString(planFormatInstruction)

	return []model.Message{
		model.NewSystemMessage(sb.String()),
		model.NewUserMessage(input),
	}
}

// memberMessages builds one member's sub-invocation prompt. Outputs of the
// step's dependencies are appended so dependent members see what they build
// on. Dependency outcomes are read under mu since sibling steps may still
// be completing.
func (t *Team) memberMessages(
	input string,
	step PlanStep,
	outcomes map[string]*memberOutcome,
	mu *sync.Mutex,
) []model.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The team received this request:\n%s\n\nYour task:\n%s",
		input, step.Instruction)

	mu.Lock()
	for _, dep := range step.DependsOn {
		if outcome := outcomes[dep]; outcome != nil && outcome.ran {
			fmt.Fprintf(&sb, "\n\nOutput from %s:\n%s", dep, outcome.text)
		}
	}
	mu.Unlock()

	return []model.Message{model.NewUserMessage(sb.String())}
}

// aggregationMessages builds the lead's aggregation prompt from the member
// outcomes. Failed members appear as explicit markers so the lead can note
// gaps instead of inventing content for them.
func (t *Team) aggregationMessages(
	input string,
	steps []PlanStep,
	outcomes map[string]*memberOutcome,
) []model.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the lead of the team %q.", t.name)
	if len(t.policyInstructions) > 0 {
		sb.WriteString("\n\nTeam policy:\n")
		for _, instruction := range t.policyInstructions {
			fmt.Fprintf(&sb, "- %s\n", instruction)
		}
	}
	sb.WriteString("\nThe members have finished. Combine their outputs into one " +
		"coherent answer to the original request. Respond with the answer in " +
		"plain text, crediting no internal mechanics.")

	var user strings.Builder
	fmt.Fprintf(&user, "Original request:\n%s\n\nMember outputs:", input)
	for _, step := range steps {
		outcome := outcomes[step.Member]
		switch {
		case outcome == nil:
			continue
		case outcome.ran:
			fmt.Fprintf(&user, "\n\n[%s]\n%s", step.Member, outcome.text)
		default:
			fmt.Fprintf(&user, "\n\n[%s]\n(no contribution: %v)", step.Member, outcome.err)
		}
	}

	return []model.Message{
		model.NewSystemMessage(sb.String()),
		model.NewUserMessage(user.String()),
	}
}
