//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package model defines the types used to converse with language models and
// the interface every model provider must implement.
package model

import "context"

// Model is the interface for language model providers.
type Model interface {
	// GenerateContent generates content from the model. The returned channel
	// yields partial responses while streaming and is closed once the final
	// response has been sent. Implementations must honor ctx cancellation.
	GenerateContent(ctx context.Context, request *Request) (<-chan *Response, error)

	// Info returns basic information about the model.
	Info() Info
}

// Info describes a model instance.
type Info struct {
	// Name is the model identifier, e.g. "gpt-4o-mini".
	Name string
}
