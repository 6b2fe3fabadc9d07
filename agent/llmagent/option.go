//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

package llmagent

import (
	"github.com/notebook-ai/nbagent/model"
	"github.com/notebook-ai/nbagent/tool"
)

// Options holds the configuration for an LLMAgent.
type Options struct {
	// Description is the agent's role description.
	Description string
	// Model is the model used by this agent. When nil, the invocation's
	// shared model is used.
	Model model.Model
	// Instructions are the role directives concatenated into the system
	// context ahead of the rendered prompt's own system message.
	Instructions []string
	// Tools are the capabilities held by this agent.
	Tools []tool.Tool
	// ToolSets are resolved into additional tools at run time.
	ToolSets []tool.ToolSet
	// GenerationConfig holds generation parameters for model requests.
	GenerationConfig model.GenerationConfig
	// ChannelBufferSize is the event channel buffer size.
	ChannelBufferSize int
	// MaxToolIterations bounds the tool-call loop within one invocation.
	MaxToolIterations int
	// MaxRetries bounds retries of transient provider errors.
	MaxRetries int
}

var defaultOptions = Options{
	ChannelBufferSize: 64,
	MaxToolIterations: 8,
	MaxRetries:        2,
	GenerationConfig:  model.GenerationConfig{Stream: true},
}

// Option configures an LLMAgent.
type Option func(*Options)

// WithDescription sets the agent's role description.
func WithDescription(description string) Option {
	return func(o *Options) {
		o.Description = description
	}
}

// WithModel sets the model used by this agent.
func WithModel(m model.Model) Option {
	return func(o *Options) {
		o.Model = m
	}
}

// WithInstructions sets the ordered role directives.
func WithInstructions(instructions ...string) Option {
	return func(o *Options) {
		o.Instructions = instructions
	}
}

// WithTools sets the capabilities held by this agent.
func WithTools(tools ...tool.Tool) Option {
	return func(o *Options) {
		o.Tools = tools
	}
}

// WithToolSets adds tool sets whose tools are resolved at run time.
func WithToolSets(toolSets ...tool.ToolSet) Option {
	return func(o *Options) {
		o.ToolSets = append(o.ToolSets, toolSets...)
	}
}

// WithGenerationConfig sets the generation parameters.
func WithGenerationConfig(cfg model.GenerationConfig) Option {
	return func(o *Options) {
		o.GenerationConfig = cfg
	}
}

// WithChannelBufferSize sets the event channel buffer size.
func WithChannelBufferSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ChannelBufferSize = size
		}
	}
}

// WithMaxToolIterations bounds the tool-call loop within one invocation.
func WithMaxToolIterations(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxToolIterations = n
		}
	}
}

// WithMaxRetries bounds retries of transient provider errors.
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.MaxRetries = n
		}
	}
}
