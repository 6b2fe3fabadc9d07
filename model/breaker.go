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
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"gopkg.in/yaml.v3"

	"github.com/notebook-ai/nbagent/log"
)

// Default circuit breaker settings.
const (
	defaultBreakerMaxFailures uint32        = 5
	defaultBreakerTimeout     time.Duration = 30 * time.Second
	defaultBreakerInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the circuit breaker behavior.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure
	// counts. If 0, failures never reset until the circuit opens.
	Interval time.Duration `yaml:"interval"`
}

// UnmarshalYAML decodes durations from strings like "30s".
func (c *BreakerConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		MaxFailures uint32 `yaml:"max_failures"`
		Timeout     string `yaml:"timeout"`
		Interval    string `yaml:"interval"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.MaxFailures = raw.MaxFailures
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("breaker timeout: %w", err)
		}
		c.Timeout = d
	}
	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("breaker interval: %w", err)
		}
		c.Interval = d
	}
	return nil
}

// breakerModel wraps a Model with circuit breaker protection. When the
// wrapped provider fails repeatedly, the circuit opens and subsequent calls
// fail fast without reaching the provider, preventing retry storms.
type breakerModel struct {
	inner   Model
	breaker *gobreaker.CircuitBreaker[<-chan *Response]
}

// WithBreaker wraps m with a circuit breaker. Zero-valued cfg fields fall
// back to defaults.
func WithBreaker(m Model, cfg BreakerConfig) Model {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	name := m.Info().Name
	cb := gobreaker.NewCircuitBreaker[<-chan *Response](gobreaker.Settings{
		Name:        "model:" + name,
		MaxRequests: 1, // allow one probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &breakerModel{inner: m, breaker: cb}
}

// GenerateContent implements Model. Calls are routed through the breaker;
// when the circuit is open the call fails fast with the breaker's error.
func (b *breakerModel) GenerateContent(
	ctx context.Context,
	request *Request,
) (<-chan *Response, error) {
	return b.breaker.Execute(func() (<-chan *Response, error) {
		return b.inner.GenerateContent(ctx, request)
	})
}

// Info implements Model.
func (b *breakerModel) Info() Info {
	return b.inner.Info()
}
