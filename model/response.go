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

import "time"

// Error type constants for ResponseError.Type.
const (
	ErrorTypeStreamError = "stream_error"
	ErrorTypeAPIError    = "api_error"
	ErrorTypeRateLimit   = "rate_limit_error"
	ErrorTypeTimeout     = "timeout_error"
	ErrorTypeFlowError   = "flow_error"
	ErrorTypeRunError    = "run_error"
)

// Object type constants for Response.Object.
const (
	// ObjectTypeError is the object type for error responses.
	ObjectTypeError = "error"
	// ObjectTypeToolResponse is the object type for tool response events.
	ObjectTypeToolResponse = "tool.response"
	// ObjectTypeChatCompletionChunk is the object type for streamed chunks.
	ObjectTypeChatCompletionChunk = "chat.completion.chunk"
	// ObjectTypeChatCompletion is the object type for complete responses.
	ObjectTypeChatCompletion = "chat.completion"
	// ObjectTypeAggregation is the object type for aggregated team responses.
	ObjectTypeAggregation = "team.aggregation"
	// ObjectTypeRunnerCompletion is the object type for runner completion events.
	ObjectTypeRunnerCompletion = "runner.completion"
)

// Choice represents a single completion choice.
type Choice struct {
	// Index is the index of the choice.
	Index int `json:"index"`

	// Message is the complete message content.
	Message Message `json:"message,omitempty"`

	// Delta is the incremental message content for streaming.
	Delta Message `json:"delta,omitempty"`

	// FinishReason is the reason the choice was finished,
	// e.g. "stop", "length", "tool_calls".
	FinishReason *string `json:"finish_reason,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	// PromptTokens is the number of tokens in the prompt.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens in the response.
	TotalTokens int `json:"total_tokens"`
}

// Response is the response from the model.
//
// The Error field represents API-level errors that occur after successful
// communication with the model service. Function-level errors returned by
// GenerateContent indicate failures that prevent communication entirely.
type Response struct {
	// ID is the unique identifier for this response.
	ID string `json:"id"`

	// Object describes the type of object returned.
	Object string `json:"object"`

	// Created is the Unix timestamp when the response was created.
	Created int64 `json:"created"`

	// Model is the model used to generate the response.
	Model string `json:"model"`

	// Choices contains the completion choices.
	Choices []Choice `json:"choices"`

	// Usage contains token usage information (nil for streamed chunks).
	Usage *Usage `json:"usage,omitempty"`

	// Error contains API-level error information if the request failed.
	Error *ResponseError `json:"error,omitempty"`

	// Timestamp when this response chunk was received.
	Timestamp time.Time `json:"timestamp"`

	// Done indicates the stream has produced its final response.
	Done bool `json:"done"`

	// IsPartial indicates this is a partial (streamed) response.
	IsPartial bool `json:"is_partial"`
}

// Clone creates a deep copy of the response.
func (rsp *Response) Clone() *Response {
	if rsp == nil {
		return nil
	}
	clone := *rsp
	clone.Choices = make([]Choice, len(rsp.Choices))
	copy(clone.Choices, rsp.Choices)
	if rsp.Usage != nil {
		u := *rsp.Usage
		clone.Usage = &u
	}
	if rsp.Error != nil {
		e := *rsp.Error
		clone.Error = &e
	}
	return &clone
}

// Content returns the text of the first choice, preferring the complete
// message over the streaming delta.
func (rsp *Response) Content() string {
	if rsp == nil || len(rsp.Choices) == 0 {
		return ""
	}
	if rsp.Choices[0].Message.Content != "" {
		return rsp.Choices[0].Message.Content
	}
	return rsp.Choices[0].Delta.Content
}

// IsToolCallResponse reports whether the response requests tool calls.
func (rsp *Response) IsToolCallResponse() bool {
	if rsp == nil {
		return false
	}
	for _, choice := range rsp.Choices {
		if len(choice.Message.ToolCalls) > 0 {
			return true
		}
	}
	return false
}

// ResponseError represents an API-level error in a response.
type ResponseError struct {
	// Message is a human-readable error description.
	Message string `json:"message"`
	// Type is one of the ErrorType constants.
	Type string `json:"type"`
	// Code is the provider-specific error code, if any.
	Code string `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return e.Message
}

// IsTransient reports whether the error is worth retrying: rate limits,
// timeouts and stream interruptions are transient, everything else is not.
func (e *ResponseError) IsTransient() bool {
	if e == nil {
		return false
	}
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeTimeout, ErrorTypeStreamError:
		return true
	default:
		return false
	}
}
