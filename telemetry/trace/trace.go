//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package trace provides the shared tracer used across nbagent. Exporter
// wiring is left to the host application; by default spans go to the
// globally registered provider.
package trace

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentName is the instrumentation scope recorded on spans.
const InstrumentName = "github.com/notebook-ai/nbagent"

// Tracer is the tracer used by the orchestration pipeline.
var Tracer trace.Tracer = otel.Tracer(InstrumentName)
