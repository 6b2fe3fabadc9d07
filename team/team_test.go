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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebook-ai/nbagent/agent"
	"github.com/notebook-ai/nbagent/event"
	"github.com/notebook-ai/nbagent/model"
	"github.com/notebook-ai/nbagent/tool"
)

// stubAgent replies with canned outputs and records every prompt it saw.
type stubAgent struct {
	name        string
	description string
	// replies are consumed in order; the last one repeats.
	replies []string
	failWith error

	mu      sync.Mutex
	prompts []string
	calls   int
	started []time.Time
}

func (s *stubAgent) Info() agent.Info {
	return agent.Info{Name: s.name, Description: s.description}
}

func (s *stubAgent) Tools() []tool.Tool { return nil }

func (s *stubAgent) Run(
	ctx context.Context,
	invocation *agent.Invocation,
) (<-chan *event.Event, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, flatten(invocation.Messages))
	s.started = append(s.started, time.Now())
	reply := ""
	if len(s.replies) > 0 {
		idx := s.calls
		if idx >= len(s.replies) {
			idx = len(s.replies) - 1
		}
		reply = s.replies[idx]
	}
	s.calls++
	failWith := s.failWith
	s.mu.Unlock()

	ch := make(chan *event.Event, 4)
	go func() {
		defer close(ch)
		if failWith != nil {
			event.Emit(ctx, ch, event.NewErrorEvent(
				invocation.InvocationID, s.name,
				model.ErrorTypeRunError, failWith.Error()))
			return
		}
		event.Emit(ctx, ch, event.NewResponseEvent(
			invocation.InvocationID, s.name, &model.Response{
				Object: model.ObjectTypeChatCompletion,
				Done:   true,
				Choices: []model.Choice{{
					Message: model.NewAssistantMessage(reply),
				}},
			}))
	}()
	return ch, nil
}

func (s *stubAgent) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

func flatten(messages []model.Message) string {
	var sb strings.Builder
	for _, msg := range messages {
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func teamInvocation(input string) *agent.Invocation {
	return agent.NewInvocation(
		agent.WithInvocationMessages([]model.Message{
			model.NewSystemMessage("context"),
			model.NewUserMessage(input),
		}),
	)
}

func planJSON(steps ...string) string {
	return fmt.Sprintf(`{"steps": [%s]}`, strings.Join(steps, ", "))
}

func TestNewValidation(t *testing.T) {
	lead := &stubAgent{name: "lead"}
	member := &stubAgent{name: "m1"}

	_, err := New("", lead, []agent.Agent{member})
	assert.Error(t, err)
	_, err = New("team", nil, []agent.Agent{member})
	assert.Error(t, err)
	_, err = New("team", lead, nil)
	assert.Error(t, err)
	_, err = New("team", lead, []agent.Agent{member, &stubAgent{name: "m1"}})
	assert.Error(t, err)
	_, err = New("team", lead, []agent.Agent{&stubAgent{name: "lead"}})
	assert.Error(t, err)

	tm, err := New("team", lead, []agent.Agent{member})
	require.NoError(t, err)
	assert.Equal(t, "team", tm.Info().Name)
	assert.Len(t, tm.Members(), 1)
	assert.NotNil(t, tm.FindMember("m1"))
	assert.Nil(t, tm.FindMember("other"))
}

func TestDirectAnswerSkipsMembers(t *testing.T) {
	lead := &stubAgent{name: "lead", replies: []string{
		`{"steps": [], "answer": "just 42"}`,
	}}
	member := &stubAgent{name: "m1"}
	tm, err := New("team", lead, []agent.Agent{member})
	require.NoError(t, err)

	result, err := tm.Coordinate(context.Background(), teamInvocation("what is 6*7"))
	require.NoError(t, err)

	assert.Equal(t, "just 42", result.FinalText)
	assert.NotNil(t, result.Attributions)
	assert.Len(t, result.Attributions, 0)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 0, member.calls)
}

func TestNonJSONPlanIsDirectAnswer(t *testing.T) {
	lead := &stubAgent{name: "lead", replies: []string{"plain prose answer"}}
	member := &stubAgent{name: "m1"}
	tm, err := New("team", lead, []agent.Agent{member})
	require.NoError(t, err)

	result, err := tm.Coordinate(context.Background(), teamInvocation("hi"))
	require.NoError(t, err)
	assert.Equal(t, "plain prose answer", result.FinalText)
	assert.Empty(t, result.Attributions)
	assert.Equal(t, 0, member.calls)
}

func TestFencedPlanIsParsed(t *testing.T) {
	plan := parsePlan("```json\n{\"steps\": [], \"answer\": \"fenced\"}\n```")
	assert.Empty(t, plan.Steps)
	assert.Equal(t, "fenced", plan.Answer)
}

func TestDelegationAggregatesAllMembers(t *testing.T) {
	lead := &stubAgent{name: "lead", replies: []string{
		planJSON(
			`{"member": "a", "instruction": "do a"}`,
			`{"member": "b", "instruction": "do b"}`,
		),
		"combined answer",
	}}
	a := &stubAgent{name: "a", replies: []string{"output a"}}
	b := &stubAgent{name: "b", replies: []string{"output b"}}
	tm, err := New("team", lead, []agent.Agent{a, b})
	require.NoError(t, err)

	result, err := tm.Coordinate(context.Background(), teamInvocation("build it"))
	require.NoError(t, err)

	assert.Equal(t, "combined answer", result.FinalText)
	require.Len(t, result.Attributions, 2)
	texts := map[string]string{}
	for _, attr := range result.Attributions {
		texts[attr.Member] = attr.Text
	}
	assert.Equal(t, "output a", texts["a"])
	assert.Equal(t, "output b", texts["b"])

	// The aggregation prompt carries both member outputs.
	assert.Contains(t, lead.lastPrompt(), "output a")
	assert.Contains(t, lead.lastPrompt(), "output b")
}

func TestNonRequiredFailureIsAbsorbed(t *testing.T) {
	lead := &stubAgent{name: "lead", replies: []string{
		planJSON(
			`{"member": "a", "instruction": "do a"}`,
			`{"member": "b", "instruction": "do b"}`,
			`{"member": "c", "instruction": "do c"}`,
		),
		"final from survivors",
	}}
	a := &stubAgent{name: "a", replies: []string{"output a"}}
	b := &stubAgent{name: "b", failWith: errors.New("member b exploded")}
	c := &stubAgent{name: "c", replies: []string{"output c"}}
	tm, err := New("team", lead, []agent.Agent{a, b, c})
	require.NoError(t, err)

	result, err := tm.Coordinate(context.Background(), teamInvocation("go"))
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, "final from survivors", result.FinalText)
	require.Len(t, result.Attributions, 2)
	for _, attr := range result.Attributions {
		assert.NotEqual(t, "b", attr.Member)
	}
	// The failure is visible to the lead as a gap marker.
	assert.Contains(t, lead.lastPrompt(), "no contribution")
}

func TestRequiredFailureFailsRun(t *testing.T) {
	lead := &stubAgent{name: "lead", replies: []string{
		planJSON(`{"member": "a", "instruction": "do a", "required": true}`),
	}}
	a := &stubAgent{name: "a", failWith: errors.New("boom")}
	tm, err := New("team", lead, []agent.Agent{a})
	require.NoError(t, err)

	_, err = tm.Coordinate(context.Background(), teamInvocation("go"))
	var dErr *DelegationError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, "team", dErr.TeamName)

	var invErr *agent.InvocationError
	assert.ErrorAs(t, err, &invErr)
}

func TestLeadFailureFailsRun(t *testing.T) {
	lead := &stubAgent{name: "lead", failWith: errors.New("lead down")}
	a := &stubAgent{name: "a"}
	tm, err := New("team", lead, []agent.Agent{a})
	require.NoError(t, err)

	_, err = tm.Coordinate(context.Background(), teamInvocation("go"))
	var dErr *DelegationError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, StatePlanning, dErr.State)
	assert.Equal(t, 0, a.calls)
}

func TestAllMembersFailedFailsRun(t *testing.T) {
	lead := &stubAgent{name: "lead", replies: []string{
		planJSON(
			`{"member": "a", "instruction": "do a"}`,
			`{"member": "b", "instruction": "do b"}`,
		),
	}}
	a := &stubAgent{name: "a", failWith: errors.New("a down")}
	b := &stubAgent{name: "b", failWith: errors.New("b down")}
	tm, err := New("team", lead, []agent.Agent{a, b})
	require.NoError(t, err)

	_, err = tm.Coordinate(context.Background(), teamInvocation("go"))
	var dErr *DelegationError
	require.ErrorAs(t, err, &dErr)
	assert.Contains(t, err.Error(), "all members failed")
}

func TestDependentRunsAfterDependency(t *testing.T) {
	lead := &stubAgent{name: "lead", replies: []string{
		planJSON(
			`{"member": "planner", "instruction": "plan it"}`,
			`{"member": "coder", "instruction": "implement it", "depends_on": ["planner"]}`,
		),
		"shipped",
	}}
	planner := &stubAgent{name: "planner", replies: []string{"the plan: step 1"}}
	coder := &stubAgent{name: "coder", replies: []string{"the code"}}
	tm, err := New("team", lead, []agent.Agent{planner, coder})
	require.NoError(t, err)

	result, err := tm.Coordinate(context.Background(), teamInvocation("feature"))
	require.NoError(t, err)

	// The coder saw the planner's output in its prompt.
	assert.Contains(t, coder.lastPrompt(), "the plan: step 1")

	// Dependent attribution comes after its dependency.
	require.Len(t, result.Attributions, 2)
	assert.Equal(t, "planner", result.Attributions[0].Member)
	assert.Equal(t, "coder", result.Attributions[1].Member)
}

func TestDependencyFailureAbortsDependent(t *testing.T) {
	lead := &stubAgent{name: "lead", replies: []string{
		planJSON(
			`{"member": "planner", "instruction": "plan"}`,
			`{"member": "coder", "instruction": "code", "depends_on": ["planner"]}`,
		),
	}}
	planner := &stubAgent{name: "planner", failWith: errors.New("no plan")}
	coder := &stubAgent{name: "coder", replies: []string{"never runs"}}
	tm, err := New("team", lead, []agent.Agent{planner, coder})
	require.NoError(t, err)

	// planner is depended upon, hence required; its failure fails the run.
	_, err = tm.Coordinate(context.Background(), teamInvocation("go"))
	var dErr *DelegationError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, 0, coder.calls)
}

func TestPlanValidation(t *testing.T) {
	lead := &stubAgent{name: "lead"}
	a := &stubAgent{name: "a"}
	tm, err := New("team", lead, []agent.Agent{a}, WithMaxPlanSteps(2))
	require.NoError(t, err)

	// Oversized plans are truncated, not rejected.
	steps, err := tm.validatePlan(Plan{Steps: []PlanStep{
		{Member: "a"}, {Member: "b"}, {Member: "c"},
	}})
	require.NoError(t, err)
	assert.Len(t, steps, 2)

	_, err = tm.validatePlan(Plan{Steps: []PlanStep{{Member: ""}}})
	assert.ErrorContains(t, err, "no member")

	_, err = tm.validatePlan(Plan{Steps: []PlanStep{
		{Member: "a"}, {Member: "a"},
	}})
	assert.ErrorContains(t, err, "twice")

	_, err = tm.validatePlan(Plan{Steps: []PlanStep{
		{Member: "a", DependsOn: []string{"a"}},
	}})
	assert.ErrorContains(t, err, "itself")

	_, err = tm.validatePlan(Plan{Steps: []PlanStep{
		{Member: "a", DependsOn: []string{"ghost"}},
	}})
	assert.ErrorContains(t, err, "not in the plan")
}

func TestRequiredMembers(t *testing.T) {
	required := requiredMembers([]PlanStep{
		{Member: "a"},
		{Member: "b", Required: true},
		{Member: "c", DependsOn: []string{"a"}},
	})
	assert.True(t, required["a"], "depended-upon member is required")
	assert.True(t, required["b"])
	assert.False(t, required["c"])
}

func TestRunStreamsAggregateAfterCompletion(t *testing.T) {
	lead := &stubAgent{name: "lead", replies: []string{
		planJSON(`{"member": "a", "instruction": "do a"}`),
		"final text",
	}}
	a := &stubAgent{name: "a", replies: []string{"output a"}}
	tm, err := New("team", lead, []agent.Agent{a})
	require.NoError(t, err)

	ch, err := tm.Run(context.Background(), teamInvocation("go"))
	require.NoError(t, err)

	var events []*event.Event
	for evt := range ch {
		events = append(events, evt)
	}
	require.Len(t, events, 2)

	assert.Equal(t, model.ObjectTypeAggregation, events[0].Response.Object)
	assert.Equal(t, "a", events[0].Author)
	assert.Equal(t, "output a", events[0].Response.Content())

	assert.True(t, events[1].Response.Done)
	assert.Equal(t, "team", events[1].Author)
	assert.Equal(t, "final text", events[1].Response.Content())
}

func TestRunEmitsSingleErrorEvent(t *testing.T) {
	lead := &stubAgent{name: "lead", failWith: errors.New("lead down")}
	a := &stubAgent{name: "a"}
	tm, err := New("team", lead, []agent.Agent{a})
	require.NoError(t, err)

	ch, err := tm.Run(context.Background(), teamInvocation("go"))
	require.NoError(t, err)

	var events []*event.Event
	for evt := range ch {
		events = append(events, evt)
	}
	require.Len(t, events, 1)
	assert.True(t, events[0].IsError())
}
