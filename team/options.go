//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

package team

type options struct {
	description        string
	policyInstructions []string
	maxPlanSteps       int
	channelBufferSize  int
}

func defaultOptions() options {
	return options{
		maxPlanSteps:      8,
		channelBufferSize: 64,
	}
}

// Option configures a Team.
type Option func(*options)

// WithDescription sets the team description returned by Info().
func WithDescription(desc string) Option {
	return func(o *options) {
		o.description = desc
	}
}

// WithPolicyInstructions sets the hard policy directives handed to the lead
// during planning and aggregation.
func WithPolicyInstructions(instructions ...string) Option {
	return func(o *options) {
		o.policyInstructions = instructions
	}
}

// WithMaxPlanSteps bounds the size of the delegation plan. The lead cannot
// fan out further than this in one run.
func WithMaxPlanSteps(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPlanSteps = n
		}
	}
}

// WithChannelBufferSize sets the event channel buffer size.
func WithChannelBufferSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.channelBufferSize = size
		}
	}
}
