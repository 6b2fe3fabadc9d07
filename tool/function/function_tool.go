//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package function provides function-based tool implementations.
package function

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/notebook-ai/nbagent/tool"
)

// FunctionTool wraps a Go function as a CallableTool. The function is called
// with arguments unmarshaled from the model's JSON tool call.
type FunctionTool[I, O any] struct {
	name        string
	description string
	inputSchema *tool.Schema
	fn          func(context.Context, I) (O, error)
}

// Option configures a FunctionTool.
type Option func(*options)

type options struct {
	name        string
	description string
	inputSchema *tool.Schema
}

// WithName sets the name of the function tool.
//
// Tool names must comply with model API requirements: use only English
// letters, numbers, underscores, and hyphens.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithDescription sets the description of the function tool.
func WithDescription(description string) Option {
	return func(o *options) {
		o.description = description
	}
}

// WithInputSchema sets the input schema for the function tool.
func WithInputSchema(schema *tool.Schema) Option {
	return func(o *options) {
		o.inputSchema = schema
	}
}

// New creates a FunctionTool from fn.
func New[I, O any](fn func(context.Context, I) (O, error), opts ...Option) *FunctionTool[I, O] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.inputSchema == nil {
		o.inputSchema = &tool.Schema{Type: "object"}
	}
	return &FunctionTool[I, O]{
		name:        o.name,
		description: o.description,
		inputSchema: o.inputSchema,
		fn:          fn,
	}
}

// Declaration implements tool.Tool.
func (t *FunctionTool[I, O]) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:        t.name,
		Description: t.description,
		InputSchema: t.inputSchema,
	}
}

// Call implements tool.CallableTool. jsonArgs is unmarshaled into the input
// type; an empty argument object is allowed.
func (t *FunctionTool[I, O]) Call(ctx context.Context, jsonArgs []byte) (any, error) {
	var input I
	if len(jsonArgs) > 0 {
		if err := json.Unmarshal(jsonArgs, &input); err != nil {
			return nil, fmt.Errorf("unmarshal arguments for tool %q: %w", t.name, err)
		}
	}
	return t.fn(ctx, input)
}
