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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/notebook-ai/nbagent/log"
)

// PlanStep is one delegation decision made by the lead agent.
type PlanStep struct {
	// Member is the roster name of the member to invoke.
	Member string `json:"member"`
	// Instruction is the sub-instruction handed to the member.
	Instruction string `json:"instruction"`
	// DependsOn lists member names whose output this step needs. Steps with
	// dependencies run after those dependencies resolve.
	DependsOn []string `json:"depends_on,omitempty"`
	// Required marks steps whose failure aborts the whole run. A step that
	// another step depends on is required implicitly.
	Required bool `json:"required,omitempty"`
	// AllowTools authorizes the member's capabilities for this step. When
	// false the member runs without tools, enforcing the side-effect policy
	// structurally instead of via instruction text alone.
	AllowTools bool `json:"allow_tools,omitempty"`
}

// Plan is the lead agent's delegation plan for one run. An empty Steps list
// with a non-empty Answer means the lead answered directly.
type Plan struct {
	Steps  []PlanStep `json:"steps"`
	Answer string     `json:"answer,omitempty"`
}

// planFormatInstruction tells the lead how to encode its delegation plan.
const planFormatInstruction = `Decide how to handle the request. Respond with a single JSON object and nothing else.

To delegate, list the members to involve in order:
{"steps": [{"member": "<name>", "instruction": "<sub-instruction>", "depends_on": ["<name>", ...], "required": true|false, "allow_tools": true|false}]}

Only list depends_on when a member needs another member's output. Set allow_tools
only when the sub-instruction explicitly authorizes side-effecting actions.

To answer directly without delegating, respond with:
{"steps": [], "answer": "<your answer>"}`

// parsePlan decodes the lead's planning output. Fenced code blocks are
// tolerated. Output that is not a JSON plan is treated as a direct answer.
func parsePlan(text string) Plan {
	candidate := stripFences(strings.TrimSpace(text))

	var plan Plan
	if err := json.Unmarshal([]byte(candidate), &plan); err != nil {
		return Plan{Answer: strings.TrimSpace(text)}
	}
	return plan
}

// validate checks plan steps against the roster and returns the steps to
// dispatch, rejecting self-references and unknown dependency names. Plans
// beyond maxPlanSteps are truncated, bounding lead-driven fan-out.
func (t *Team) validatePlan(plan Plan) ([]PlanStep, error) {
	steps := plan.Steps
	if len(steps) > t.maxPlanSteps {
		log.Warnf("team %s: delegation plan has %d steps, truncating to %d",
			t.name, len(steps), t.maxPlanSteps)
		steps = steps[:t.maxPlanSteps]
	}

	index := make(map[string]int, len(steps))
	for i, step := range steps {
		if step.Member == "" {
			return nil, fmt.Errorf("plan step %d has no member", i)
		}
		if _, ok := index[step.Member]; ok {
			return nil, fmt.Errorf("member %q appears twice in the plan", step.Member)
		}
		index[step.Member] = i
	}
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if dep == step.Member {
				return nil, fmt.Errorf("member %q depends on itself", step.Member)
			}
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("member %q depends on %q which is not in the plan",
					step.Member, dep)
			}
		}
	}
	return steps, nil
}

// requiredMembers returns the set of member names whose failure aborts the
// run: steps marked required plus every step another step depends on.
func requiredMembers(steps []PlanStep) map[string]bool {
	required := make(map[string]bool)
	for _, step := range steps {
		if step.Required {
			required[step.Member] = true
		}
		for _, dep := range step.DependsOn {
			required[dep] = true
		}
	}
	return required
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
