//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

// Package prompt turns a fixed instruction template plus per-turn variables
// into the ordered message list handed to an agent or team: one system
// message, the bounded history, one trailing user message.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/notebook-ai/nbagent/model"
	"github.com/notebook-ai/nbagent/session"
)

// DefaultSystemTemplate is the default persona system prompt. The context
// block is conditional: absent context collapses to the alternate literal.
const DefaultSystemTemplate = `<instructions>
You are {{.persona_name}}, an AI coding assistant provided in an interactive
notebook session.

You are specialized in helping users with coding tasks, debugging, and
providing explanations about code.

You are powered by a foundation model ` + "`{{.model_id}}`" + `, provided by
'{{.provider_name}}'.

If you do not know the answer to a question, answer truthfully by responding
that you do not know.

You should use Markdown to format your response. Any code in your response
must be enclosed in Markdown fenced code blocks, with the appropriate
language identifier.

You will receive any provided context and a relevant portion of the chat
history. The user's request is located at the last message. Please fulfill
the user's request to the best of your ability.
</instructions>

<context>
{{if .context}}The user has shared the following context:

{{.context}}{{else}}The user did not share any additional context.{{end}}
</context>`

// Variables are the per-turn template inputs. All fields except Context are
// required.
type Variables struct {
	// Input is the inbound user message body.
	Input string
	// PersonaName is the display name of the persona answering.
	PersonaName string
	// ProviderName is the model provider name shown to the model.
	ProviderName string
	// ModelID is the model identifier shown to the model.
	ModelID string
	// Context is optional additional context shared by the user.
	Context string
}

// Validate checks that all required fields are non-empty.
func (v Variables) Validate() error {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"input", v.Input},
		{"persona_name", v.PersonaName},
		{"provider_name", v.ProviderName},
		{"model_id", v.ModelID},
	} {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name}
		}
	}
	return nil
}

// ValidationError reports a missing required variable. It is never retried
// and must be surfaced before any model call.
type ValidationError struct {
	// Field is the name of the missing variable.
	Field string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("prompt: required variable %q is missing", e.Field)
}

// TemplateError reports a misconfigured template: a parse failure or a
// reference to an undeclared variable. It indicates a configuration bug.
type TemplateError struct {
	// Err is the underlying template error.
	Err error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("prompt: template error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Renderer renders a persona's system template into a message list.
// Renderers are immutable and safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses text as the system template. An empty text selects
// DefaultSystemTemplate. Parse failures return a *TemplateError.
func NewRenderer(text string) (*Renderer, error) {
	if text == "" {
		text = DefaultSystemTemplate
	}
	tmpl, err := template.New("system").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, &TemplateError{Err: err}
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render produces the message list for one exchange: exactly one system
// message, the history turns in chronological order, and exactly one
// trailing user message carrying vars.Input.
//
// Render is a pure function of its inputs: rendering the same variables and
// history twice yields structurally identical results. A reference to an
// undeclared variable in the template fails with *TemplateError.
func (r *Renderer) Render(vars Variables, history []session.Turn) ([]model.Message, error) {
	if err := vars.Validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	data := map[string]any{
		"input":         vars.Input,
		"persona_name":  vars.PersonaName,
		"provider_name": vars.ProviderName,
		"model_id":      vars.ModelID,
		"context":       vars.Context,
	}
	if err := r.tmpl.Execute(&sb, data); err != nil {
		return nil, &TemplateError{Err: err}
	}

	messages := make([]model.Message, 0, len(history)+2)
	messages = append(messages, model.NewSystemMessage(sb.String()))
	for _, turn := range history {
		messages = append(messages, model.Message{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, model.NewUserMessage(vars.Input))
	return messages, nil
}
