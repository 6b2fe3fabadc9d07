//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package llmagent provides the LLM-backed agent implementation.
package llmagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/notebook-ai/nbagent/agent"
	"github.com/notebook-ai/nbagent/event"
	"github.com/notebook-ai/nbagent/log"
	"github.com/notebook-ai/nbagent/model"
	"github.com/notebook-ai/nbagent/tool"
)

// LLMAgent is a single role-bound agent backed by a language model. It is
// parameterized by a model reference, an ordered instruction list, and an
// optional set of tool capabilities.
type LLMAgent struct {
	name    string
	options Options
	tools   map[string]tool.Tool
}

// New creates a new LLMAgent with the given options.
func New(name string, opts ...Option) *LLMAgent {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	tools := make(map[string]tool.Tool, len(options.Tools))
	for _, t := range options.Tools {
		tools[t.Declaration().Name] = t
	}
	return &LLMAgent{
		name:    name,
		options: options,
		tools:   tools,
	}
}

// Info implements agent.Agent.
func (a *LLMAgent) Info() agent.Info {
	return agent.Info{
		Name:        a.name,
		Description: a.options.Description,
	}
}

// Tools implements agent.Agent.
func (a *LLMAgent) Tools() []tool.Tool {
	out := make([]tool.Tool, 0, len(a.tools))
	for _, t := range a.options.Tools {
		out = append(out, t)
	}
	return out
}

// WithoutTools returns a copy of the agent that holds no capabilities.
// Team coordinators use this to gate tool attachment per sub-instruction.
func (a *LLMAgent) WithoutTools() agent.Agent {
	options := a.options
	options.Tools = nil
	options.ToolSets = nil
	return &LLMAgent{
		name:    a.name,
		options: options,
		tools:   map[string]tool.Tool{},
	}
}

// resolveTools merges the agent's own tools with its tool sets' tools for
// one run. Tool sets are resolved per run since their contents may depend
// on the context.
func (a *LLMAgent) resolveTools(ctx context.Context) map[string]tool.Tool {
	if len(a.options.ToolSets) == 0 {
		return a.tools
	}
	tools := make(map[string]tool.Tool, len(a.tools))
	for name, t := range a.tools {
		tools[name] = t
	}
	for _, set := range a.options.ToolSets {
		for _, t := range set.Tools(ctx) {
			tools[t.Declaration().Name] = t
		}
	}
	return tools
}

// Run implements agent.Agent. The returned stream is finite and not
// restartable; partial responses are streamed as they arrive and the final
// response is marked Done.
func (a *LLMAgent) Run(
	ctx context.Context,
	invocation *agent.Invocation,
) (<-chan *event.Event, error) {
	m := a.options.Model
	if m == nil {
		m = invocation.Model
	}
	if m == nil {
		return nil, fmt.Errorf("agent %q has no model", a.name)
	}
	if len(invocation.Messages) == 0 {
		return nil, fmt.Errorf("agent %q invoked with empty prompt", a.name)
	}

	eventChan := make(chan *event.Event, a.options.ChannelBufferSize)
	go func() {
		defer close(eventChan)
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("agent %s panic: %v\n%s", a.name, r, string(debug.Stack()))
			}
		}()
		a.execute(ctx, invocation, m, a.resolveTools(ctx), eventChan)
	}()
	return eventChan, nil
}

// execute drives the generate/tool loop until a final text response or an
// unrecoverable error.
func (a *LLMAgent) execute(
	ctx context.Context,
	invocation *agent.Invocation,
	m model.Model,
	tools map[string]tool.Tool,
	eventChan chan<- *event.Event,
) {
	messages := a.prepareMessages(invocation.Messages)

	for iteration := 0; iteration <= a.options.MaxToolIterations; iteration++ {
		final, err := a.generate(ctx, invocation, m, messages, tools, eventChan)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			var rspErr *model.ResponseError
			invErr := &agent.InvocationError{
				AgentName: a.name,
				Err:       err,
				Transient: errors.As(err, &rspErr) && rspErr.IsTransient(),
			}
			event.Emit(ctx, eventChan, event.NewErrorEvent(
				invocation.InvocationID, a.name, model.ErrorTypeRunError, invErr.Error()))
			return
		}

		if !final.IsToolCallResponse() {
			return
		}

		// The model requested tool calls. Execute them synchronously and
		// feed the observations back for the next iteration.
		assistant := final.Choices[0].Message
		messages = append(messages, assistant)
		messages = append(messages, a.callTools(ctx, tools, assistant.ToolCalls)...)
	}

	log.Warnf("agent %s exceeded %d tool iterations", a.name, a.options.MaxToolIterations)
	event.Emit(ctx, eventChan, event.NewErrorEvent(
		invocation.InvocationID, a.name, model.ErrorTypeRunError,
		fmt.Sprintf("agent %q exceeded the tool iteration limit", a.name)))
}

// prepareMessages concatenates the agent's instruction list into the system
// context ahead of the rendered prompt's own system message.
func (a *LLMAgent) prepareMessages(rendered []model.Message) []model.Message {
	messages := make([]model.Message, 0, len(rendered))
	if len(a.options.Instructions) > 0 && rendered[0].Role == model.RoleSystem {
		merged := strings.Join(a.options.Instructions, "\n") + "\n\n" + rendered[0].Content
		messages = append(messages, model.NewSystemMessage(merged))
		messages = append(messages, rendered[1:]...)
		return messages
	}
	if len(a.options.Instructions) > 0 {
		messages = append(messages, model.NewSystemMessage(strings.Join(a.options.Instructions, "\n")))
	}
	return append(messages, rendered...)
}

// generate performs one model call, streaming partial responses and
// retrying transient failures while nothing has been emitted yet.
func (a *LLMAgent) generate(
	ctx context.Context,
	invocation *agent.Invocation,
	m model.Model,
	messages []model.Message,
	tools map[string]tool.Tool,
	eventChan chan<- *event.Event,
) (*model.Response, error) {
	request := &model.Request{
		Messages:         messages,
		GenerationConfig: a.options.GenerationConfig,
		Tools:            tools,
	}

	var lastErr error
	for attempt := 0; attempt <= a.options.MaxRetries; attempt++ {
		final, emitted, err := a.consumeStream(ctx, invocation, m, request, eventChan)
		if err == nil {
			return final, nil
		}
		lastErr = err

		// Retrying after partial output would duplicate streamed text;
		// only retry when the failed attempt produced nothing.
		var rspErr *model.ResponseError
		transient := errors.As(err, &rspErr) && rspErr.IsTransient()
		if emitted || !transient || attempt == a.options.MaxRetries {
			break
		}
		log.Debugf("agent %s transient provider error, retrying (%d/%d): %v",
			a.name, attempt+1, a.options.MaxRetries, err)
	}
	return nil, lastErr
}

// consumeStream runs one GenerateContent call to completion. It reports
// whether any partial content was emitted to the caller.
func (a *LLMAgent) consumeStream(
	ctx context.Context,
	invocation *agent.Invocation,
	m model.Model,
	request *model.Request,
	eventChan chan<- *event.Event,
) (final *model.Response, emitted bool, err error) {
	responseChan, err := m.GenerateContent(ctx, request)
	if err != nil {
		return nil, false, err
	}

	for {
		select {
		case rsp, ok := <-responseChan:
			if !ok {
				if final == nil {
					return nil, emitted, &model.ResponseError{
						Message: "provider closed the stream without a final response",
						Type:    model.ErrorTypeStreamError,
					}
				}
				return final, emitted, nil
			}
			if rsp.Error != nil {
				return nil, emitted, rsp.Error
			}
			if rsp.IsPartial {
				if rsp.Content() != "" {
					emitted = true
				}
				if emitErr := event.Emit(ctx, eventChan,
					event.NewResponseEvent(invocation.InvocationID, a.name, rsp)); emitErr != nil {
					return nil, emitted, emitErr
				}
				continue
			}
			final = rsp
			if !final.IsToolCallResponse() {
				if emitErr := event.Emit(ctx, eventChan,
					event.NewResponseEvent(invocation.InvocationID, a.name, rsp)); emitErr != nil {
					return nil, emitted, emitErr
				}
			}
		case <-ctx.Done():
			return nil, emitted, ctx.Err()
		}
	}
}

// callTools executes the requested tool calls in order. Each call is
// synchronous from this agent's perspective. Capability errors are caught
// here and surfaced to the model as structured error observations rather
// than propagated.
func (a *LLMAgent) callTools(
	ctx context.Context,
	tools map[string]tool.Tool,
	calls []model.ToolCall,
) []model.Message {
	observations := make([]model.Message, 0, len(calls))
	for _, call := range calls {
		name := call.Function.Name
		observations = append(observations,
			model.NewToolMessage(call.ID, name, a.callOne(ctx, tools, call)))
	}
	return observations
}

func (a *LLMAgent) callOne(ctx context.Context, tools map[string]tool.Tool, call model.ToolCall) string {
	name := call.Function.Name
	t, ok := tools[name]
	if !ok {
		return errorObservation(fmt.Sprintf("tool %q is not available", name))
	}
	callable, ok := t.(tool.CallableTool)
	if !ok {
		return errorObservation(fmt.Sprintf("tool %q is not callable", name))
	}

	result, err := callable.Call(ctx, call.Function.Arguments)
	if err != nil {
		log.Debugf("agent %s tool %s failed: %v", a.name, name, err)
		return errorObservation(err.Error())
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return errorObservation(fmt.Sprintf("encode result of tool %q: %v", name, err))
	}
	return string(encoded)
}

// errorObservation encodes a capability error as a structured observation
// the model can react to, either by retrying with a corrected call or by
// reporting inability in its final text.
func errorObservation(message string) string {
	encoded, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return `{"error":"tool failed"}`
	}
	return string(encoded)
}
