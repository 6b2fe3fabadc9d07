//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentPrefersMessageOverDelta(t *testing.T) {
	rsp := &Response{Choices: []Choice{{
		Message: NewAssistantMessage("full"),
		Delta:   Message{Role: RoleAssistant, Content: "partial"},
	}}}
	assert.Equal(t, "full", rsp.Content())

	rsp = &Response{Choices: []Choice{{
		Delta: Message{Role: RoleAssistant, Content: "partial"},
	}}}
	assert.Equal(t, "partial", rsp.Content())

	assert.Empty(t, (&Response{}).Content())
	var nilRsp *Response
	assert.Empty(t, nilRsp.Content())
}

func TestIsToolCallResponse(t *testing.T) {
	rsp := &Response{Choices: []Choice{{
		Message: Message{
			Role:      RoleAssistant,
			ToolCalls: []ToolCall{{ID: "c1", Type: "function"}},
		},
	}}}
	assert.True(t, rsp.IsToolCallResponse())
	assert.False(t, (&Response{}).IsToolCallResponse())
}

func TestResponseErrorTransience(t *testing.T) {
	tests := []struct {
		errType   string
		transient bool
	}{
		{ErrorTypeRateLimit, true},
		{ErrorTypeTimeout, true},
		{ErrorTypeStreamError, true},
		{ErrorTypeAPIError, false},
		{ErrorTypeFlowError, false},
		{ErrorTypeRunError, false},
	}
	for _, tt := range tests {
		err := &ResponseError{Message: "x", Type: tt.errType}
		assert.Equal(t, tt.transient, err.IsTransient(), tt.errType)
	}
	var nilErr *ResponseError
	assert.False(t, nilErr.IsTransient())
}

func TestResponseClone(t *testing.T) {
	rsp := &Response{
		ID:      "r1",
		Choices: []Choice{{Message: NewAssistantMessage("hi")}},
		Usage:   &Usage{TotalTokens: 3},
		Error:   &ResponseError{Message: "e"},
	}
	clone := rsp.Clone()
	clone.Choices[0].Message.Content = "changed"
	clone.Usage.TotalTokens = 99

	assert.Equal(t, "hi", rsp.Content())
	assert.Equal(t, 3, rsp.Usage.TotalTokens)
}

func TestRoleValidity(t *testing.T) {
	assert.True(t, RoleUser.IsValid())
	assert.True(t, RoleTool.IsValid())
	assert.False(t, Role("ghost").IsValid())
}
