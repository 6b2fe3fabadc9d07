//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package persona declares personas: named assistant configurations binding
// a system prompt template, a model reference, a history window, and
// optionally a team roster. Personas are loaded from YAML or built from
// presets and compiled into runnable agents.
package persona

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/notebook-ai/nbagent/agent"
	"github.com/notebook-ai/nbagent/agent/llmagent"
	"github.com/notebook-ai/nbagent/model"
	"github.com/notebook-ai/nbagent/prompt"
	"github.com/notebook-ai/nbagent/session"
	"github.com/notebook-ai/nbagent/team"
	"github.com/notebook-ai/nbagent/tool"
)

// DefaultAvatarPath is served for personas that do not set their own.
const DefaultAvatarPath = "/api/ai/static/jupyternaut.svg"

// Config is the declarative persona definition.
type Config struct {
	// Name is the persona's display name, also used as the template's
	// persona_name variable.
	Name string `yaml:"name"`
	// AvatarPath is the avatar served for this persona.
	AvatarPath string `yaml:"avatar_path,omitempty"`
	// Description is a one-line persona description.
	Description string `yaml:"description,omitempty"`
	// SystemPrompt is the system prompt template text. Empty selects the
	// default template.
	SystemPrompt string `yaml:"system_prompt,omitempty"`
	// ProviderName names the backing model provider.
	ProviderName string `yaml:"provider_name"`
	// ModelID is the model identifier.
	ModelID string `yaml:"model_id"`
	// HistoryWindow is the number of prior exchanges included in the
	// prompt. Zero selects the default window size.
	HistoryWindow int `yaml:"history_window,omitempty"`
	// Breaker, when set, wraps the model in a circuit breaker.
	Breaker *model.BreakerConfig `yaml:"breaker,omitempty"`
	// Team, when set, makes this persona a team coordinator instead of a
	// single agent.
	Team *TeamConfig `yaml:"team,omitempty"`
}

// TeamConfig declares a persona's team roster.
type TeamConfig struct {
	// Name is the team name.
	Name string `yaml:"name"`
	// PolicyInstructions are the hard directives handed to the lead.
	PolicyInstructions []string `yaml:"policy_instructions,omitempty"`
	// MaxPlanSteps bounds the delegation plan. Zero selects the default.
	MaxPlanSteps int `yaml:"max_plan_steps,omitempty"`
	// Members is the roster in declaration order.
	Members []MemberConfig `yaml:"members"`
}

// MemberConfig declares one team member.
type MemberConfig struct {
	// Name is the member's roster name.
	Name string `yaml:"name"`
	// Role is the member's role description, shown to the lead during
	// planning.
	Role string `yaml:"role,omitempty"`
	// Instructions are the member's role directives.
	Instructions []string `yaml:"instructions,omitempty"`
	// Capabilities lists tool names resolved against the registry at build
	// time.
	Capabilities []string `yaml:"capabilities,omitempty"`
}

// Load reads a persona config from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a persona config from YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse persona config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Name == "" {
		return errors.New("persona name is empty")
	}
	if c.ProviderName == "" {
		return errors.New("persona provider_name is empty")
	}
	if c.ModelID == "" {
		return errors.New("persona model_id is empty")
	}
	if c.HistoryWindow < 0 {
		return session.ErrInvalidWindowSize
	}
	if c.Team != nil {
		if c.Team.Name == "" {
			return errors.New("team name is empty")
		}
		if len(c.Team.Members) == 0 {
			return errors.New("team members is empty")
		}
		for i, m := range c.Team.Members {
			if m.Name == "" {
				return fmt.Errorf("team member %d has no name", i)
			}
		}
	}
	return nil
}

// Persona is a compiled persona ready to be registered with a runner.
type Persona struct {
	cfg      Config
	agent    agent.Agent
	renderer *prompt.Renderer
}

// Build compiles the config against a model and a capability registry. The
// registry maps tool names to host-wired capabilities; a config referencing
// an unregistered capability fails here, not at invocation time.
func (c *Config) Build(m model.Model, registry map[string]tool.Tool) (*Persona, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("persona model is nil")
	}

	renderer, err := prompt.NewRenderer(c.SystemPrompt)
	if err != nil {
		return nil, err
	}

	if c.Breaker != nil {
		m = model.WithBreaker(m, *c.Breaker)
	}

	var ag agent.Agent
	if c.Team == nil {
		ag = llmagent.New(c.Name,
			llmagent.WithDescription(c.Description),
			llmagent.WithModel(m),
		)
	} else {
		ag, err = c.buildTeam(m, registry)
		if err != nil {
			return nil, err
		}
	}

	return &Persona{cfg: *c, agent: ag, renderer: renderer}, nil
}

func (c *Config) buildTeam(m model.Model, registry map[string]tool.Tool) (agent.Agent, error) {
	members := make([]agent.Agent, 0, len(c.Team.Members))
	for _, mc := range c.Team.Members {
		tools, err := resolveCapabilities(mc, registry)
		if err != nil {
			return nil, err
		}
		members = append(members, llmagent.New(mc.Name,
			llmagent.WithDescription(mc.Role),
			llmagent.WithInstructions(mc.Instructions...),
			llmagent.WithTools(tools...),
			llmagent.WithModel(m),
		))
	}

	lead := llmagent.New(c.Team.Name+"-lead",
		llmagent.WithDescription("Team lead coordinating "+c.Team.Name),
		llmagent.WithModel(m),
		llmagent.WithGenerationConfig(model.GenerationConfig{Stream: false}),
	)

	opts := []team.Option{
		team.WithDescription(c.Description),
		team.WithPolicyInstructions(c.Team.PolicyInstructions...),
	}
	if c.Team.MaxPlanSteps > 0 {
		opts = append(opts, team.WithMaxPlanSteps(c.Team.MaxPlanSteps))
	}
	return team.New(c.Team.Name, lead, members, opts...)
}

func resolveCapabilities(mc MemberConfig, registry map[string]tool.Tool) ([]tool.Tool, error) {
	tools := make([]tool.Tool, 0, len(mc.Capabilities))
	for _, name := range mc.Capabilities {
		t, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("member %q requires capability %q which is not registered",
				mc.Name, name)
		}
		tools = append(tools, t)
	}
	return tools, nil
}

// Name returns the persona's display name.
func (p *Persona) Name() string {
	return p.cfg.Name
}

// Description returns the persona description.
func (p *Persona) Description() string {
	return p.cfg.Description
}

// AvatarPath returns the persona's avatar path, falling back to the
// default.
func (p *Persona) AvatarPath() string {
	if p.cfg.AvatarPath != "" {
		return p.cfg.AvatarPath
	}
	return DefaultAvatarPath
}

// ProviderName returns the backing provider name.
func (p *Persona) ProviderName() string {
	return p.cfg.ProviderName
}

// ModelID returns the backing model identifier.
func (p *Persona) ModelID() string {
	return p.cfg.ModelID
}

// WindowSize returns the configured history window size.
func (p *Persona) WindowSize() int {
	if p.cfg.HistoryWindow > 0 {
		return p.cfg.HistoryWindow
	}
	return session.DefaultWindowSize
}

// Agent returns the compiled agent, a single agent or a team.
func (p *Persona) Agent() agent.Agent {
	return p.agent
}

// Renderer returns the persona's system prompt renderer.
func (p *Persona) Renderer() *prompt.Renderer {
	return p.renderer
}
