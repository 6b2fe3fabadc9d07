//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebook-ai/nbagent/model"
)

func TestNewAssignsIdentity(t *testing.T) {
	e := New("inv-1", "helper")
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "inv-1", e.InvocationID)
	assert.Equal(t, "helper", e.Author)
	assert.False(t, e.Timestamp.IsZero())

	other := New("inv-1", "helper")
	assert.NotEqual(t, e.ID, other.ID)
}

func TestNewErrorEvent(t *testing.T) {
	e := NewErrorEvent("inv-1", "helper", model.ErrorTypeRunError, "it broke")
	assert.True(t, e.IsError())
	assert.Equal(t, model.ObjectTypeError, e.Response.Object)
	assert.True(t, e.Response.Done)
	assert.Equal(t, "it broke", e.Response.Error.Message)
	// The message doubles as renderable content.
	assert.Equal(t, "it broke", e.Response.Content())
}

func TestClone(t *testing.T) {
	e := NewResponseEvent("inv-1", "helper", &model.Response{
		Choices: []model.Choice{{Message: model.NewAssistantMessage("hi")}},
	})
	clone := e.Clone()
	require.NotNil(t, clone)

	clone.Response.Choices[0].Message.Content = "changed"
	assert.Equal(t, "hi", e.Response.Content())
}

func TestEmitHonorsCancellation(t *testing.T) {
	ch := make(chan *Event) // unbuffered, nobody reading
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Emit(ctx, ch, New("inv-1", "helper"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmitNilEvent(t *testing.T) {
	ch := make(chan *Event)
	assert.NoError(t, Emit(context.Background(), ch, nil))
}
