//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package agent defines the agent interface and the invocation context
// threaded through a single pipeline run.
package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/notebook-ai/nbagent/event"
	"github.com/notebook-ai/nbagent/model"
	"github.com/notebook-ai/nbagent/tool"
)

// Agent is the interface that all agents must implement. An agent is a
// single role-bound unit wrapping a model, an instruction set, and an
// optional capability set of tools.
type Agent interface {
	// Run executes the agent against the invocation and returns a finite,
	// non-restartable stream of events. The channel is closed when the
	// agent is done.
	Run(ctx context.Context, invocation *Invocation) (<-chan *event.Event, error)

	// Tools returns the tools available to this agent.
	Tools() []tool.Tool

	// Info returns the basic information about this agent.
	Info() Info
}

// Info describes an agent.
type Info struct {
	// Name is the agent name, unique within a roster.
	Name string
	// Description is the agent's role description.
	Description string
}

// Invocation carries the state of one pipeline run. It is created per
// inbound message and discarded after dispatch.
type Invocation struct {
	// Agent is the agent being invoked.
	Agent Agent
	// AgentName is the name of the agent being invoked.
	AgentName string
	// InvocationID identifies this run.
	InvocationID string
	// SessionID identifies the conversation this run belongs to.
	SessionID string
	// Messages is the rendered prompt: one system message, bounded history,
	// one trailing user message.
	Messages []model.Message
	// Model is the shared provider session for this run, threaded into each
	// agent's execution rather than re-acquired per agent.
	Model model.Model
}

// InvocationOption configures an Invocation.
type InvocationOption func(*Invocation)

// WithInvocationAgent sets the agent and agent name.
func WithInvocationAgent(a Agent) InvocationOption {
	return func(inv *Invocation) {
		inv.Agent = a
		if a != nil {
			inv.AgentName = a.Info().Name
		}
	}
}

// WithInvocationSessionID sets the session id.
func WithInvocationSessionID(sessionID string) InvocationOption {
	return func(inv *Invocation) {
		inv.SessionID = sessionID
	}
}

// WithInvocationMessages sets the rendered prompt.
func WithInvocationMessages(messages []model.Message) InvocationOption {
	return func(inv *Invocation) {
		inv.Messages = messages
	}
}

// WithInvocationModel sets the shared provider session.
func WithInvocationModel(m model.Model) InvocationOption {
	return func(inv *Invocation) {
		inv.Model = m
	}
}

// NewInvocation creates an invocation with a generated ID.
func NewInvocation(opts ...InvocationOption) *Invocation {
	inv := &Invocation{
		InvocationID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Clone returns a copy of the invocation with the given options applied.
// The invocation ID and shared model are preserved so child runs stay
// attributable to the originating pipeline run.
func (inv *Invocation) Clone(opts ...InvocationOption) *Invocation {
	clone := *inv
	clone.Messages = make([]model.Message, len(inv.Messages))
	copy(clone.Messages, inv.Messages)
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

type invocationKey struct{}

// NewInvocationContext returns a context carrying the invocation.
func NewInvocationContext(ctx context.Context, invocation *Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, invocation)
}

// InvocationFromContext returns the invocation carried by the context.
func InvocationFromContext(ctx context.Context) (*Invocation, bool) {
	invocation, ok := ctx.Value(invocationKey{}).(*Invocation)
	return invocation, ok
}

// InvocationError reports an unrecoverable failure during a single agent's
// turn: a provider error or an exhausted retry budget.
type InvocationError struct {
	// AgentName is the failing agent.
	AgentName string
	// Err is the underlying failure.
	Err error
	// Transient marks provider errors that were worth retrying.
	Transient bool
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("agent %q invocation failed: %v", e.AgentName, e.Err)
}

// Unwrap returns the underlying error.
func (e *InvocationError) Unwrap() error {
	return e.Err
}
