//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package session provides the bounded view over per-session conversation
// history. The durable store behind Service is an external collaborator;
// the orchestration core only reads a bounded suffix and appends turns.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/notebook-ai/nbagent/model"
)

var (
	// ErrSessionIDRequired is returned when the session id is empty.
	ErrSessionIDRequired = errors.New("session id is required")
	// ErrInvalidWindowSize is returned when the window size is not positive.
	ErrInvalidWindowSize = errors.New("window size must be positive")
)

// DefaultWindowSize is the default number of prior turns supplied to the
// prompt renderer.
const DefaultWindowSize = 2

// Turn is one user or assistant message in a session's history. Turns are
// immutable once appended and ordered by append time.
type Turn struct {
	// Role is the author role, user or assistant.
	Role model.Role `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// Timestamp is when the turn was appended.
	Timestamp time.Time `json:"timestamp"`
}

// NewUserTurn creates a user turn stamped with the current time.
func NewUserTurn(content string) Turn {
	return Turn{Role: model.RoleUser, Content: content, Timestamp: time.Now()}
}

// NewAssistantTurn creates an assistant turn stamped with the current time.
func NewAssistantTurn(content string) Turn {
	return Turn{Role: model.RoleAssistant, Content: content, Timestamp: time.Now()}
}

// Service is the history store interface. Implementations must keep turns
// ordered by append time and never mutate or reorder past turns.
type Service interface {
	// Fetch returns the most recent limit turns of the session in
	// chronological order. limit <= 0 returns the full history.
	Fetch(ctx context.Context, sessionID string, limit int) ([]Turn, error)

	// Append appends one turn to the session history.
	Append(ctx context.Context, sessionID string, turn Turn) error

	// Close releases resources held by the service.
	Close() error
}

// Window exposes a bounded, ordered view of prior turns for the prompt
// renderer. The bound k is fixed per persona configuration.
type Window struct {
	service Service
	k       int
}

// NewWindow creates a window over service bounded to the most recent k turns.
func NewWindow(service Service, k int) (*Window, error) {
	if service == nil {
		return nil, errors.New("session service is nil")
	}
	if k <= 0 {
		return nil, ErrInvalidWindowSize
	}
	return &Window{service: service, k: k}, nil
}

// Size returns the window bound k.
func (w *Window) Size() int {
	return w.k
}

// Fetch returns at most k turns, most recent first fetched, chronological
// order preserved.
func (w *Window) Fetch(ctx context.Context, sessionID string) ([]Turn, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	return w.service.Fetch(ctx, sessionID, w.k)
}

// Append appends one turn to the session. Durability is the store's
// responsibility; callers treat failures as reportable but non-fatal.
func (w *Window) Append(ctx context.Context, sessionID string, turn Turn) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	return w.service.Append(ctx, sessionID, turn)
}
