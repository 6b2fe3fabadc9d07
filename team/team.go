//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package team provides the team coordinator: a lead agent plans a
// delegation across a fixed roster of member agents, members run under the
// plan's dependency ordering, and the lead aggregates their outputs into
// one result.
package team

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/notebook-ai/nbagent/agent"
	"github.com/notebook-ai/nbagent/event"
	"github.com/notebook-ai/nbagent/log"
	"github.com/notebook-ai/nbagent/model"
	itrace "github.com/notebook-ai/nbagent/telemetry/trace"
	"github.com/notebook-ai/nbagent/tool"
)

// State is the coordinator's run state.
type State string

// Coordinator run states. FAILED is reachable from every non-terminal state.
const (
	StatePlanning        State = "PLANNING"
	StateDelegating      State = "DELEGATING"
	StateAwaitingMembers State = "AWAITING_MEMBERS"
	StateAggregating     State = "AGGREGATING"
	StateDone            State = "DONE"
	StateFailed          State = "FAILED"
)

// Attribution records one member's contribution to an aggregated result.
type Attribution struct {
	// Member is the roster name of the contributing member.
	Member string `json:"member"`
	// Text is the member's output.
	Text string `json:"text"`
}

// AggregatedResult is the team's consolidated output for one run.
type AggregatedResult struct {
	// FinalText is the lead's aggregated answer.
	FinalText string `json:"final_text"`
	// Attributions lists member contributions. Concurrent members appear in
	// completion order; dependent members after their dependencies. Empty
	// when the lead answered directly.
	Attributions []Attribution `json:"per_member_attributions"`
	// State is the terminal state of the run, DONE on success.
	State State `json:"state"`
}

// DelegationError reports a team-wide failure: the lead failed, a required
// member failed, or every member failed. It is not retried.
type DelegationError struct {
	// TeamName is the failing team.
	TeamName string
	// State is the state in which the run failed.
	State State
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *DelegationError) Error() string {
	return fmt.Sprintf("team %q failed in %s: %v", e.TeamName, e.State, e.Err)
}

// Unwrap returns the underlying error.
func (e *DelegationError) Unwrap() error {
	return e.Err
}

// toolGater is implemented by agents that can run with their capabilities
// detached, so tool attachment can be gated per sub-instruction.
type toolGater interface {
	WithoutTools() agent.Agent
}

var (
	errEmptyTeamName = errors.New("team name is empty")
	errNilLead       = errors.New("lead agent is nil")
	errEmptyRoster   = errors.New("members is empty")
)

// Team coordinates a fixed roster of member agents under a lead agent.
//
// Team implements agent.Agent so it can be dispatched anywhere a single
// agent is expected.
type Team struct {
	name        string
	description string

	lead         agent.Agent
	members      []agent.Agent
	memberByName map[string]agent.Agent

	policyInstructions []string
	maxPlanSteps       int
	channelBufferSize  int
}

// New creates a team. The lead must be distinct from every member and the
// roster must be non-empty with unique names.
func New(name string, lead agent.Agent, members []agent.Agent, opts ...Option) (*Team, error) {
	if name == "" {
		return nil, errEmptyTeamName
	}
	if lead == nil {
		return nil, errNilLead
	}

	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	memberByName, err := buildMemberIndex(lead.Info().Name, members)
	if err != nil {
		return nil, err
	}

	return &Team{
		name:               name,
		description:        cfg.description,
		lead:               lead,
		members:            members,
		memberByName:       memberByName,
		policyInstructions: cfg.policyInstructions,
		maxPlanSteps:       cfg.maxPlanSteps,
		channelBufferSize:  cfg.channelBufferSize,
	}, nil
}

func buildMemberIndex(leadName string, members []agent.Agent) (map[string]agent.Agent, error) {
	if len(members) == 0 {
		return nil, errEmptyRoster
	}
	memberByName := make(map[string]agent.Agent, len(members))
	for _, m := range members {
		if m == nil {
			return nil, errors.New("member is nil")
		}
		name := m.Info().Name
		if name == "" {
			return nil, errors.New("member name is empty")
		}
		if name == leadName {
			return nil, fmt.Errorf("member name %q conflicts with the lead", name)
		}
		if memberByName[name] != nil {
			return nil, fmt.Errorf("duplicate member name %q", name)
		}
		memberByName[name] = m
	}
	return memberByName, nil
}

// Info implements agent.Agent.
func (t *Team) Info() agent.Info {
	return agent.Info{
		Name:        t.name,
		Description: t.description,
	}
}

// Tools implements agent.Agent. The coordinator itself holds no
// capabilities; members hold theirs.
func (t *Team) Tools() []tool.Tool {
	return nil
}

// Members returns the roster in declaration order.
func (t *Team) Members() []agent.Agent {
	out := make([]agent.Agent, len(t.members))
	copy(out, t.members)
	return out
}

// FindMember returns the member with the given name, or nil.
func (t *Team) FindMember(name string) agent.Agent {
	return t.memberByName[name]
}

// Run implements agent.Agent. The aggregated result is streamed only after
// aggregation completes: first one attribution event per contributing
// member, then the final text marked Done.
func (t *Team) Run(
	ctx context.Context,
	invocation *agent.Invocation,
) (<-chan *event.Event, error) {
	eventChan := make(chan *event.Event, t.channelBufferSize)
	go func() {
		defer close(eventChan)
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("team %s panic: %v\n%s", t.name, r, string(debug.Stack()))
			}
		}()

		result, err := t.Coordinate(ctx, invocation)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			event.Emit(ctx, eventChan, event.NewErrorEvent(
				invocation.InvocationID, t.name, model.ErrorTypeRunError, err.Error()))
			return
		}

		for _, attr := range result.Attributions {
			event.Emit(ctx, eventChan, event.NewResponseEvent(
				invocation.InvocationID, attr.Member, &model.Response{
					Object: model.ObjectTypeAggregation,
					Choices: []model.Choice{{
						Message: model.NewAssistantMessage(attr.Text),
					}},
				}))
		}
		event.Emit(ctx, eventChan, event.NewResponseEvent(
			invocation.InvocationID, t.name, &model.Response{
				Object: model.ObjectTypeChatCompletion,
				Done:   true,
				Choices: []model.Choice{{
					Message: model.NewAssistantMessage(result.FinalText),
				}},
			}))
	}()
	return eventChan, nil
}

// Coordinate runs the full state machine for one input and returns the
// aggregated result.
func (t *Team) Coordinate(
	ctx context.Context,
	invocation *agent.Invocation,
) (*AggregatedResult, error) {
	ctx, span := itrace.Tracer.Start(ctx, "team.coordinate")
	defer span.End()
	span.SetAttributes(attribute.String("team.name", t.name))

	input := lastUserInput(invocation.Messages)

	// PLANNING: the lead interprets the input against the policy
	// instructions and produces a delegation plan.
	t.setState(span, StatePlanning)
	planText, err := t.invokeAgent(ctx, t.lead, invocation, t.planningMessages(input))
	if err != nil {
		return nil, t.fail(span, StatePlanning, fmt.Errorf("lead planning: %w", err))
	}
	plan := parsePlan(planText)

	// An empty plan means the lead answers directly; no member is invoked.
	if len(plan.Steps) == 0 {
		t.setState(span, StateDone)
		answer := plan.Answer
		if answer == "" {
			answer = strings.TrimSpace(planText)
		}
		return &AggregatedResult{
			FinalText:    answer,
			Attributions: []Attribution{},
			State:        StateDone,
		}, nil
	}

	steps, err := t.validatePlan(plan)
	if err != nil {
		return nil, t.fail(span, StatePlanning, err)
	}

	// DELEGATING / AWAITING_MEMBERS: dispatch members under the plan's
	// dependency ordering and wait for all of them.
	t.setState(span, StateDelegating)
	attributions, outcomes, err := t.dispatch(ctx, invocation, input, steps, span)
	if err != nil {
		return nil, t.fail(span, StateAwaitingMembers, err)
	}

	// AGGREGATING: the lead consumes member outputs and failure markers.
	t.setState(span, StateAggregating)
	finalText, err := t.invokeAgent(ctx, t.lead, invocation,
		t.aggregationMessages(input, steps, outcomes))
	if err != nil {
		return nil, t.fail(span, StateAggregating, fmt.Errorf("lead aggregation: %w", err))
	}

	t.setState(span, StateDone)
	return &AggregatedResult{
		FinalText:    finalText,
		Attributions: attributions,
		State:        StateDone,
	}, nil
}

// memberOutcome records a member's terminal status for aggregation.
type memberOutcome struct {
	text   string
	err    error
	ran    bool
	gotRun bool
}

// dispatch runs the planned steps. Steps without pending dependencies run
// concurrently; a step whose dependency failed is skipped. Attributions are
// appended in completion order.
func (t *Team) dispatch(
	ctx context.Context,
	invocation *agent.Invocation,
	input string,
	steps []PlanStep,
	span oteltrace.Span,
) ([]Attribution, map[string]*memberOutcome, error) {
	required := requiredMembers(steps)
	outcomes := make(map[string]*memberOutcome, len(steps))
	for _, step := range steps {
		outcomes[step.Member] = &memberOutcome{}
	}

	var (
		mu           sync.Mutex
		attributions = []Attribution{}
	)

	pending := make([]PlanStep, len(steps))
	copy(pending, steps)

	for len(pending) > 0 {
		ready, rest := splitReady(pending, outcomes)
		if len(ready) == 0 {
			return nil, nil, fmt.Errorf("delegation plan has a dependency cycle")
		}
		pending = rest

		// Skip steps whose dependency failed or was skipped.
		dispatchable := ready[:0]
		for _, step := range ready {
			if dep, ok := failedDependency(step, outcomes); ok {
				if required[step.Member] {
					return nil, nil, fmt.Errorf(
						"required member %q cannot run: dependency %q failed",
						step.Member, dep)
				}
				log.Warnf("team %s: skipping member %s, dependency %s failed",
					t.name, step.Member, dep)
				outcomes[step.Member].err = fmt.Errorf("skipped: dependency %q failed", dep)
				continue
			}
			dispatchable = append(dispatchable, step)
		}

		t.setState(span, StateAwaitingMembers)
		g, gctx := errgroup.WithContext(ctx)
		for _, step := range dispatchable {
			g.Go(func() error {
				member := t.memberByName[step.Member]
				if member == nil {
					err := fmt.Errorf("member %q is not in the roster", step.Member)
					return t.recordFailure(step, required, outcomes, &mu, err)
				}
				if !step.AllowTools {
					if gater, ok := member.(toolGater); ok {
						member = gater.WithoutTools()
					}
				}

				text, err := t.invokeAgent(gctx, member, invocation,
					t.memberMessages(input, step, outcomes, &mu))
				if err != nil {
					return t.recordFailure(step, required, outcomes, &mu, err)
				}

				mu.Lock()
				outcome := outcomes[step.Member]
				outcome.text = text
				outcome.ran = true
				outcome.gotRun = true
				attributions = append(attributions, Attribution{
					Member: step.Member,
					Text:   text,
				})
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	}

	if allFailed(outcomes) {
		return nil, nil, errors.New("all members failed")
	}
	return attributions, outcomes, nil
}

// recordFailure stores a member failure. Required members propagate the
// failure and cancel outstanding siblings; others are absorbed as an empty
// contribution.
func (t *Team) recordFailure(
	step PlanStep,
	required map[string]bool,
	outcomes map[string]*memberOutcome,
	mu *sync.Mutex,
	err error,
) error {
	mu.Lock()
	outcomes[step.Member].err = err
	outcomes[step.Member].gotRun = true
	mu.Unlock()
	if required[step.Member] {
		return fmt.Errorf("required member %q failed: %w", step.Member, err)
	}
	log.Warnf("team %s: member %s failed, treating as empty contribution: %v",
		t.name, step.Member, err)
	return nil
}

// splitReady partitions pending steps into those whose dependencies are all
// resolved and the remainder.
func splitReady(pending []PlanStep, outcomes map[string]*memberOutcome) (ready, rest []PlanStep) {
	for _, step := range pending {
		resolved := true
		for _, dep := range step.DependsOn {
			outcome := outcomes[dep]
			if outcome == nil || (!outcome.gotRun && outcome.err == nil) {
				resolved = false
				break
			}
		}
		if resolved {
			ready = append(ready, step)
		} else {
			rest = append(rest, step)
		}
	}
	return ready, rest
}

func failedDependency(step PlanStep, outcomes map[string]*memberOutcome) (string, bool) {
	for _, dep := range step.DependsOn {
		if outcome := outcomes[dep]; outcome != nil && outcome.err != nil {
			return dep, true
		}
	}
	return "", false
}

func allFailed(outcomes map[string]*memberOutcome) bool {
	for _, outcome := range outcomes {
		if outcome.ran {
			return false
		}
	}
	return true
}

// invokeAgent runs ag with the given messages and collects the stream into
// a single text. An error event in the stream fails the invocation.
func (t *Team) invokeAgent(
	ctx context.Context,
	ag agent.Agent,
	base *agent.Invocation,
	messages []model.Message,
) (string, error) {
	child := base.Clone(
		agent.WithInvocationAgent(ag),
		agent.WithInvocationMessages(messages),
	)
	childCtx := agent.NewInvocationContext(ctx, child)

	eventChan, err := ag.Run(childCtx, child)
	if err != nil {
		return "", err
	}

	var partial strings.Builder
	var finalText string
	for {
		select {
		case evt, ok := <-eventChan:
			if !ok {
				if finalText != "" {
					return finalText, nil
				}
				if partial.Len() > 0 {
					return partial.String(), nil
				}
				return "", &agent.InvocationError{
					AgentName: ag.Info().Name,
					Err:       errors.New("agent produced no output"),
				}
			}
			if evt.IsError() {
				return "", &agent.InvocationError{
					AgentName: ag.Info().Name,
					Err:       evt.Response.Error,
				}
			}
			if evt.Response == nil {
				continue
			}
			if evt.Response.IsPartial {
				partial.WriteString(evt.Response.Content())
				continue
			}
			if content := evt.Response.Content(); content != "" {
				finalText = content
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (t *Team) setState(span oteltrace.Span, state State) {
	log.Debugf("team %s: %s", t.name, state)
	span.AddEvent(string(state))
}

func (t *Team) fail(span oteltrace.Span, state State, err error) error {
	log.Debugf("team %s: %s", t.name, StateFailed)
	span.AddEvent(string(StateFailed))
	return &DelegationError{TeamName: t.name, State: state, Err: err}
}

func lastUserInput(messages []model.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
