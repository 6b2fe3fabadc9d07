//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package capability declares the standard tool capabilities agents may
// hold: code execution, file access, and repository queries. The actual
// executors are supplied by the host; this package only shapes them into
// callable tools.
package capability

import (
	"context"

	"github.com/notebook-ai/nbagent/tool"
	"github.com/notebook-ai/nbagent/tool/function"
)

// Capability names.
const (
	NameExecuteCode     = "execute_code"
	NameReadFile        = "read_file"
	NameWriteFile       = "write_file"
	NameRepositoryQuery = "repository_query"
)

// ExecuteCodeArgs are the arguments for the execute_code capability.
type ExecuteCodeArgs struct {
	// Code is the source to execute.
	Code string `json:"code"`
	// Language is the language identifier, e.g. "python".
	Language string `json:"language,omitempty"`
}

// ExecuteCodeResult is the result of a code execution.
type ExecuteCodeResult struct {
	// Output is the combined stdout/stderr of the run.
	Output string `json:"output"`
	// ExitCode is the process exit code.
	ExitCode int `json:"exit_code"`
}

// ExecuteCode wraps a host-supplied code executor.
func ExecuteCode(run func(context.Context, ExecuteCodeArgs) (ExecuteCodeResult, error)) tool.CallableTool {
	return function.New(run,
		function.WithName(NameExecuteCode),
		function.WithDescription("Execute a code snippet in the host sandbox and return its output."),
		function.WithInputSchema(&tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"code":     {Type: "string", Description: "Source code to execute."},
				"language": {Type: "string", Description: "Language identifier, e.g. python."},
			},
			Required: []string{"code"},
		}),
	)
}

// FileArgs are the arguments for the file capabilities.
type FileArgs struct {
	// Path is the file path relative to the workspace.
	Path string `json:"path"`
	// Content is the content to write (write_file only).
	Content string `json:"content,omitempty"`
}

// ReadFile wraps a host-supplied file reader.
func ReadFile(read func(context.Context, FileArgs) (string, error)) tool.CallableTool {
	return function.New(read,
		function.WithName(NameReadFile),
		function.WithDescription("Read a file from the workspace."),
		function.WithInputSchema(&tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"path": {Type: "string", Description: "Workspace-relative file path."},
			},
			Required: []string{"path"},
		}),
	)
}

// WriteFile wraps a host-supplied file writer.
func WriteFile(write func(context.Context, FileArgs) (string, error)) tool.CallableTool {
	return function.New(write,
		function.WithName(NameWriteFile),
		function.WithDescription("Write content to a file in the workspace."),
		function.WithInputSchema(&tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"path":    {Type: "string", Description: "Workspace-relative file path."},
				"content": {Type: "string", Description: "Content to write."},
			},
			Required: []string{"path", "content"},
		}),
	)
}

// RepositoryQueryArgs are the arguments for the repository_query capability.
type RepositoryQueryArgs struct {
	// Query describes the repository operation, e.g. "list open pull requests".
	Query string `json:"query"`
	// Repository is the repository identifier, e.g. "owner/name".
	Repository string `json:"repository,omitempty"`
}

// RepositoryQuery wraps a host-supplied repository API client.
func RepositoryQuery(query func(context.Context, RepositoryQueryArgs) (string, error)) tool.CallableTool {
	return function.New(query,
		function.WithName(NameRepositoryQuery),
		function.WithDescription("Query the remote repository for activity, branches, or metadata."),
		function.WithInputSchema(&tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"query":      {Type: "string", Description: "Repository operation to perform."},
				"repository": {Type: "string", Description: "Repository identifier, owner/name."},
			},
			Required: []string{"query"},
		}),
	)
}
