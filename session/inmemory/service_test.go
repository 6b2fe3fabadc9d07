//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebook-ai/nbagent/session"
)

func TestFetchUnknownSession(t *testing.T) {
	s := NewService()
	defer s.Close()

	turns, err := s.Fetch(context.Background(), "nope", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestAppendFetchRoundTrip(t *testing.T) {
	s := NewService()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "s1", session.NewUserTurn("q1")))
	require.NoError(t, s.Append(ctx, "s1", session.NewAssistantTurn("a1")))

	turns, err := s.Fetch(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "q1", turns[0].Content)
	assert.Equal(t, "a1", turns[1].Content)
}

func TestFetchLimitKeepsMostRecent(t *testing.T) {
	s := NewService()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "s1", session.NewUserTurn("q1")))
	require.NoError(t, s.Append(ctx, "s1", session.NewAssistantTurn("a1")))
	require.NoError(t, s.Append(ctx, "s1", session.NewUserTurn("q2")))
	require.NoError(t, s.Append(ctx, "s1", session.NewAssistantTurn("a2")))

	turns, err := s.Fetch(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "q2", turns[0].Content)
	assert.Equal(t, "a2", turns[1].Content)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := NewService()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "s1", session.NewUserTurn("for s1")))

	turns, err := s.Fetch(ctx, "s2", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestEmptySessionID(t *testing.T) {
	s := NewService()
	defer s.Close()
	ctx := context.Background()

	_, err := s.Fetch(ctx, "", 1)
	assert.ErrorIs(t, err, session.ErrSessionIDRequired)
	err = s.Append(ctx, "", session.NewUserTurn("x"))
	assert.ErrorIs(t, err, session.ErrSessionIDRequired)
}

func TestWindowBoundsFetch(t *testing.T) {
	s := NewService()
	defer s.Close()
	ctx := context.Background()

	w, err := session.NewWindow(s, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Size())

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Append(ctx, "s1", session.NewUserTurn("q")))
		require.NoError(t, w.Append(ctx, "s1", session.NewAssistantTurn("a")))
	}

	turns, err := w.Fetch(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestNewWindowValidation(t *testing.T) {
	s := NewService()
	defer s.Close()

	_, err := session.NewWindow(s, 0)
	assert.ErrorIs(t, err, session.ErrInvalidWindowSize)
	_, err = session.NewWindow(nil, 2)
	assert.Error(t, err)
}
