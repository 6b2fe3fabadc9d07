//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package runner provides the orchestration pipeline: one inbound session
// message in, one streamed persona response out, with history fetched
// before and appended after. Messages for the same session run in arrival
// order; distinct sessions run concurrently on a shared worker pool.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/notebook-ai/nbagent/agent"
	"github.com/notebook-ai/nbagent/event"
	"github.com/notebook-ai/nbagent/log"
	"github.com/notebook-ai/nbagent/model"
	"github.com/notebook-ai/nbagent/persona"
	"github.com/notebook-ai/nbagent/prompt"
	"github.com/notebook-ai/nbagent/session"
	itrace "github.com/notebook-ai/nbagent/telemetry/trace"
)

const (
	defaultPoolSize          = 16
	defaultChannelBufferSize = 64
)

var (
	// ErrInputRequired is returned when the inbound message body is empty.
	ErrInputRequired = errors.New("input is required")
	// ErrRunnerClosed is returned after Close.
	ErrRunnerClosed = errors.New("runner is closed")
)

// Options configures a Runner.
type Options struct {
	// PoolSize bounds the number of concurrently running sessions.
	PoolSize int
	// ChannelBufferSize is the buffer of each returned event channel.
	ChannelBufferSize int
}

// Option configures a Runner.
type Option func(*Options)

// WithPoolSize bounds the number of concurrently running sessions.
func WithPoolSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.PoolSize = n
		}
	}
}

// WithChannelBufferSize sets the buffer of each returned event channel.
func WithChannelBufferSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.ChannelBufferSize = n
		}
	}
}

// Runner drives the full exchange pipeline for registered personas.
type Runner struct {
	appName string
	service session.Service
	model   model.Model
	options Options

	pool *ants.Pool

	mu       sync.Mutex
	personas map[string]*persona.Persona
	queues   map[string]*sessionQueue
	closed   bool
}

// sessionQueue serializes runs within one session. Jobs run in arrival
// order; the drainer goroutine exists only while jobs are pending.
type sessionQueue struct {
	jobs   []sessionJob
	active bool
}

// sessionJob is one queued exchange together with the event channel its
// caller is already consuming, so a closing runner can terminate the
// stream of a job that never gets to run.
type sessionJob struct {
	run func()
	out chan *event.Event
}

// New creates a runner. The model is the shared model reference handed to
// every invocation; personas without their own model use it.
func New(appName string, service session.Service, m model.Model, opts ...Option) (*Runner, error) {
	if appName == "" {
		return nil, errors.New("app name is empty")
	}
	if service == nil {
		return nil, errors.New("session service is nil")
	}
	if m == nil {
		return nil, errors.New("model is nil")
	}

	options := Options{
		PoolSize:          defaultPoolSize,
		ChannelBufferSize: defaultChannelBufferSize,
	}
	for _, opt := range opts {
		opt(&options)
	}

	pool, err := ants.NewPool(options.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Runner{
		appName:  appName,
		service:  service,
		model:    m,
		options:  options,
		pool:     pool,
		personas: make(map[string]*persona.Persona),
		queues:   make(map[string]*sessionQueue),
	}, nil
}

// RegisterPersona adds a compiled persona under its name.
func (r *Runner) RegisterPersona(p *persona.Persona) error {
	if p == nil {
		return errors.New("persona is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRunnerClosed
	}
	if _, ok := r.personas[p.Name()]; ok {
		return fmt.Errorf("persona %q is already registered", p.Name())
	}
	r.personas[p.Name()] = p
	return nil
}

// RunOption configures one Run call.
type RunOption func(*runConfig)

type runConfig struct {
	context string
}

// WithContext attaches user-shared context to the exchange.
func WithContext(contextText string) RunOption {
	return func(c *runConfig) {
		c.context = contextText
	}
}

// Run processes one inbound message for a session and returns the event
// stream of the exchange. A second message arriving for the same session
// while one is processing is queued, not rejected, and runs afterwards.
//
// On success the stream carries the persona's partial and final events
// followed by one runner completion event, and the exchange is appended to
// the session history. On failure the stream carries a single error event
// and nothing is appended.
func (r *Runner) Run(
	ctx context.Context,
	sessionID, personaName, input string,
	opts ...RunOption,
) (<-chan *event.Event, error) {
	if sessionID == "" {
		return nil, session.ErrSessionIDRequired
	}
	if input == "" {
		return nil, ErrInputRequired
	}

	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRunnerClosed
	}
	p, ok := r.personas[personaName]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("persona %q is not registered", personaName)
	}

	out := make(chan *event.Event, r.options.ChannelBufferSize)
	job := sessionJob{
		out: out,
		run: func() {
			defer close(out)
			defer func() {
				if rec := recover(); rec != nil {
					log.Errorf("runner %s panic: %v\n%s", r.appName, rec, string(debug.Stack()))
				}
			}()
			r.process(ctx, p, sessionID, input, cfg.context, out)
		},
	}

	if err := r.enqueue(sessionID, job); err != nil {
		return nil, err
	}
	return out, nil
}

// enqueue appends the job to the session's queue and starts a drainer if
// none is running.
func (r *Runner) enqueue(sessionID string, job sessionJob) error {
	r.mu.Lock()
	q := r.queues[sessionID]
	if q == nil {
		q = &sessionQueue{}
		r.queues[sessionID] = q
	}
	q.jobs = append(q.jobs, job)
	startDrainer := !q.active
	if startDrainer {
		q.active = true
	}
	r.mu.Unlock()

	if !startDrainer {
		return nil
	}
	if err := r.pool.Submit(func() { r.drain(sessionID) }); err != nil {
		// Take the job back out so a later drainer does not run it into a
		// stream nobody reads: the caller only sees the error.
		r.mu.Lock()
		q.active = false
		for i := range q.jobs {
			if q.jobs[i].out == job.out {
				q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
				break
			}
		}
		if len(q.jobs) == 0 {
			delete(r.queues, sessionID)
		}
		r.mu.Unlock()
		return fmt.Errorf("submit session job: %w", err)
	}
	return nil
}

func (r *Runner) drain(sessionID string) {
	for {
		r.mu.Lock()
		q := r.queues[sessionID]
		if q == nil || len(q.jobs) == 0 {
			if q != nil {
				q.active = false
				delete(r.queues, sessionID)
			}
			r.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		r.mu.Unlock()
		job.run()
	}
}

// process runs the pipeline for one exchange: fetch window, render, invoke,
// stream, append.
func (r *Runner) process(
	ctx context.Context,
	p *persona.Persona,
	sessionID, input, contextText string,
	out chan<- *event.Event,
) {
	ctx, span := itrace.Tracer.Start(ctx, "runner.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("app.name", r.appName),
		attribute.String("persona.name", p.Name()),
		attribute.String("session.id", sessionID),
	)

	invocation := agent.NewInvocation(
		agent.WithInvocationAgent(p.Agent()),
		agent.WithInvocationSessionID(sessionID),
		agent.WithInvocationModel(r.model),
	)
	span.SetAttributes(attribute.String("invocation.id", invocation.InvocationID))

	window, err := session.NewWindow(r.service, p.WindowSize())
	if err != nil {
		r.fail(ctx, out, invocation.InvocationID, err)
		return
	}
	history, err := window.Fetch(ctx, sessionID)
	if err != nil {
		r.fail(ctx, out, invocation.InvocationID,
			fmt.Errorf("fetch session history: %w", err))
		return
	}

	vars := prompt.Variables{
		Input:        input,
		PersonaName:  p.Name(),
		ProviderName: p.ProviderName(),
		ModelID:      p.ModelID(),
		Context:      contextText,
	}
	messages, err := p.Renderer().Render(vars, history)
	if err != nil {
		r.fail(ctx, out, invocation.InvocationID, err)
		return
	}
	invocation.Messages = messages

	finalText, err := r.stream(ctx, p, invocation, out)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Debugf("runner %s: session %s canceled, nothing appended", r.appName, sessionID)
			return
		}
		r.fail(ctx, out, invocation.InvocationID, err)
		return
	}

	// Append the exchange. Persistence failures do not fail the exchange:
	// the response already streamed; the next window is merely shorter.
	if err := window.Append(ctx, sessionID, session.NewUserTurn(input)); err != nil {
		log.Errorf("runner %s: append user turn for session %s: %v", r.appName, sessionID, err)
	} else if err := window.Append(ctx, sessionID, session.NewAssistantTurn(finalText)); err != nil {
		log.Errorf("runner %s: append assistant turn for session %s: %v", r.appName, sessionID, err)
	}

	event.Emit(ctx, out, event.NewResponseEvent(invocation.InvocationID, r.appName,
		&model.Response{
			Object: model.ObjectTypeRunnerCompletion,
			Done:   true,
			Choices: []model.Choice{{
				Message: model.NewAssistantMessage(finalText),
			}},
		}))
}

// stream runs the persona's agent and forwards its events, returning the
// final response text.
func (r *Runner) stream(
	ctx context.Context,
	p *persona.Persona,
	invocation *agent.Invocation,
	out chan<- *event.Event,
) (string, error) {
	ctx = agent.NewInvocationContext(ctx, invocation)
	eventChan, err := p.Agent().Run(ctx, invocation)
	if err != nil {
		return "", err
	}

	var partial, finalText string
	for {
		select {
		case evt, ok := <-eventChan:
			if !ok {
				if finalText != "" {
					return finalText, nil
				}
				if partial != "" {
					return partial, nil
				}
				return "", &agent.InvocationError{
					AgentName: p.Agent().Info().Name,
					Err:       errors.New("agent produced no output"),
				}
			}
			if evt.IsError() {
				return "", &agent.InvocationError{
					AgentName: p.Agent().Info().Name,
					Err:       evt.Response.Error,
				}
			}
			if err := event.Emit(ctx, out, evt); err != nil {
				return "", err
			}
			if evt.Response == nil {
				continue
			}
			if evt.Response.IsPartial {
				partial += evt.Response.Content()
				continue
			}
			if content := evt.Response.Content(); content != "" {
				finalText = content
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (r *Runner) fail(ctx context.Context, out chan<- *event.Event, invocationID string, err error) {
	log.Errorf("runner %s: exchange failed: %v", r.appName, err)
	event.Emit(ctx, out, event.NewErrorEvent(
		invocationID, r.appName, model.ErrorTypeRunError, err.Error()))
}

// Close releases the worker pool and the session service. Queued jobs that
// never started are terminated: each pending stream receives one error
// event and is closed, so consumers ranging over it finish.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	for _, q := range r.queues {
		for _, job := range q.jobs {
			// The stream is untouched until its job runs, so the buffered
			// send cannot block.
			job.out <- event.NewErrorEvent("", r.appName,
				model.ErrorTypeRunError, ErrRunnerClosed.Error())
			close(job.out)
		}
		q.jobs = nil
	}
	r.queues = make(map[string]*sessionQueue)
	r.mu.Unlock()

	r.pool.Release()
	return r.service.Close()
}
