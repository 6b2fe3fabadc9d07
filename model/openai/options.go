//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

package openai

import (
	openaiopt "github.com/openai/openai-go/option"
)

// Options holds the configuration for the OpenAI model.
type Options struct {
	// APIKey authenticates against the provider. Falls back to the
	// OPENAI_API_KEY environment variable.
	APIKey string
	// BaseURL overrides the API endpoint for OpenAI-compatible providers.
	BaseURL string
	// ChannelBufferSize is the response channel buffer size.
	ChannelBufferSize int
	// RequestOptions are extra client options passed through to the SDK.
	RequestOptions []openaiopt.RequestOption
}

var defaultOptions = Options{
	ChannelBufferSize: 256,
}

// Option configures the OpenAI model.
type Option func(*Options)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Options) {
		o.APIKey = key
	}
}

// WithBaseURL sets the API endpoint.
func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.BaseURL = url
	}
}

// WithChannelBufferSize sets the response channel buffer size.
func WithChannelBufferSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ChannelBufferSize = size
		}
	}
}

// WithRequestOptions appends extra SDK client options.
func WithRequestOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *Options) {
		o.RequestOptions = append(o.RequestOptions, opts...)
	}
}
