//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package event provides the streamed event type that carries model output
// from agents to the hosting surface.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/notebook-ai/nbagent/model"
)

// Event represents one unit of streamed output in a conversation between
// agents and users.
type Event struct {
	// Response is the model output carried by this event.
	*model.Response

	// InvocationID identifies the pipeline run this event belongs to.
	InvocationID string `json:"invocationId"`

	// Author is the name of the agent (or "user") that produced the event.
	Author string `json:"author"`

	// ID is the unique event ID.
	ID string `json:"id"`

	// Timestamp is when the event was created.
	Timestamp time.Time `json:"timestamp"`
}

// Option configures an Event.
type Option func(*Event)

// WithResponse attaches a model response to the event.
func WithResponse(rsp *model.Response) Option {
	return func(e *Event) {
		e.Response = rsp
	}
}

// New creates a new Event with a generated ID and timestamp.
func New(invocationID, author string, opts ...Option) *Event {
	e := &Event{
		Response:     &model.Response{},
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		InvocationID: invocationID,
		Author:       author,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewResponseEvent creates an event carrying the given model response.
func NewResponseEvent(invocationID, author string, rsp *model.Response) *Event {
	return New(invocationID, author, WithResponse(rsp))
}

// NewErrorEvent creates an event carrying an error of the given type. The
// error message is also set as the event content so hosting surfaces can
// render it directly.
func NewErrorEvent(invocationID, author, errType, message string) *Event {
	rsp := &model.Response{
		Object: model.ObjectTypeError,
		Done:   true,
		Error: &model.ResponseError{
			Message: message,
			Type:    errType,
		},
		Choices: []model.Choice{{
			Message: model.NewAssistantMessage(message),
		}},
	}
	return New(invocationID, author, WithResponse(rsp))
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Response = e.Response.Clone()
	return &clone
}

// IsError reports whether the event carries an error response.
func (e *Event) IsError() bool {
	return e != nil && e.Response != nil && e.Response.Error != nil
}

// Emit sends the event to ch, honoring context cancellation. A nil event is
// dropped silently.
func Emit(ctx context.Context, ch chan<- *Event, e *Event) error {
	if e == nil {
		return nil
	}
	select {
	case ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
