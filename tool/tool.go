//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package tool defines the capability contracts agents may hold. Tool
// implementations live outside the orchestration core; only their
// declarations and call surface matter here.
package tool

import "context"

// Tool is the interface every capability must implement.
type Tool interface {
	// Declaration returns the declaration of the tool.
	Declaration() *Declaration
}

// CallableTool is a tool that can be invoked with JSON-encoded arguments.
type CallableTool interface {
	Tool

	// Call executes the tool with the given JSON arguments.
	Call(ctx context.Context, jsonArgs []byte) (any, error)
}

// Declaration describes a tool to the model.
type Declaration struct {
	// Name is the tool name.
	Name string `json:"name"`
	// Description explains what the tool does.
	Description string `json:"description"`
	// InputSchema is the JSON schema of the tool arguments.
	InputSchema *Schema `json:"input_schema,omitempty"`
	// OutputSchema is the JSON schema of the tool result.
	OutputSchema *Schema `json:"output_schema,omitempty"`
}

// Schema is a minimal JSON schema representation.
type Schema struct {
	// Type is the JSON type, e.g. "object", "string".
	Type string `json:"type,omitempty"`
	// Description documents the schema node.
	Description string `json:"description,omitempty"`
	// Properties lists object properties.
	Properties map[string]*Schema `json:"properties,omitempty"`
	// Required lists required property names.
	Required []string `json:"required,omitempty"`
	// Items is the schema of array items.
	Items *Schema `json:"items,omitempty"`
}

// ToolSet manages a set of tools.
type ToolSet interface {
	// Tools returns the tools available in the set for the given context.
	Tools(context.Context) []Tool

	// Close releases any resources held by the ToolSet.
	Close() error

	// Name returns the name of the ToolSet.
	Name() string
}

// NewStaticToolSet returns a ToolSet over a fixed slice of tools.
func NewStaticToolSet(name string, tools []Tool) ToolSet {
	return &staticToolSet{name: name, tools: tools}
}

type staticToolSet struct {
	name  string
	tools []Tool
}

func (s *staticToolSet) Tools(context.Context) []Tool {
	if len(s.tools) == 0 {
		return nil
	}
	out := make([]Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

func (s *staticToolSet) Close() error { return nil }

func (s *staticToolSet) Name() string { return s.name }
