//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory session history service, suitable
// for tests and single-process deployments.
package inmemory

import (
	"context"
	"sync"

	"github.com/notebook-ai/nbagent/session"
)

// Service is an in-memory implementation of session.Service.
type Service struct {
	mu       sync.RWMutex
	sessions map[string][]session.Turn
}

// NewService creates a new in-memory session service.
func NewService() *Service {
	return &Service{
		sessions: make(map[string][]session.Turn),
	}
}

// Fetch implements session.Service. It returns the most recent limit turns
// in chronological order; limit <= 0 returns the full history. An unknown
// session yields an empty history, not an error.
func (s *Service) Fetch(ctx context.Context, sessionID string, limit int) ([]session.Turn, error) {
	if sessionID == "" {
		return nil, session.ErrSessionIDRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]session.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Append implements session.Service.
func (s *Service) Append(ctx context.Context, sessionID string, turn session.Turn) error {
	if sessionID == "" {
		return session.ErrSessionIDRequired
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	return nil
}

// Close implements session.Service.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string][]session.Turn)
	return nil
}
