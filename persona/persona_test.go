//
// Tencent is pleased to support the open source community by making
// nbagent available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// nbagent is licensed under the Apache License Version 2.0.
//
//

package persona

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebook-ai/nbagent/model"
	"github.com/notebook-ai/nbagent/team"
	"github.com/notebook-ai/nbagent/tool"
	"github.com/notebook-ai/nbagent/tool/capability"
)

type noopModel struct{}

func (noopModel) Info() model.Info { return model.Info{Name: "noop"} }

func (noopModel) GenerateContent(ctx context.Context, request *model.Request) (<-chan *model.Response, error) {
	ch := make(chan *model.Response)
	close(ch)
	return ch, nil
}

func testRegistry() map[string]tool.Tool {
	return map[string]tool.Tool{
		capability.NameExecuteCode: capability.ExecuteCode(
			func(ctx context.Context, args capability.ExecuteCodeArgs) (capability.ExecuteCodeResult, error) {
				return capability.ExecuteCodeResult{Output: "ran"}, nil
			}),
		capability.NameReadFile: capability.ReadFile(
			func(ctx context.Context, args capability.FileArgs) (string, error) {
				return "", nil
			}),
		capability.NameWriteFile: capability.WriteFile(
			func(ctx context.Context, args capability.FileArgs) (string, error) {
				return "", nil
			}),
		capability.NameRepositoryQuery: capability.RepositoryQuery(
			func(ctx context.Context, args capability.RepositoryQueryArgs) (string, error) {
				return "", nil
			}),
	}
}

func TestParseValidation(t *testing.T) {
	_, err := Parse([]byte(`provider_name: p
model_id: m`))
	assert.ErrorContains(t, err, "name")

	_, err = Parse([]byte(`name: x
model_id: m`))
	assert.ErrorContains(t, err, "provider_name")

	_, err = Parse([]byte(`name: x
provider_name: p`))
	assert.ErrorContains(t, err, "model_id")

	_, err = Parse([]byte("not: [valid"))
	assert.ErrorContains(t, err, "parse persona config")
}

func TestParseSingleAgentConfig(t *testing.T) {
	cfg, err := Parse([]byte(`name: Jupyternaut
description: General notebook helper
provider_name: test-provider
model_id: test-model
history_window: 4
`))
	require.NoError(t, err)
	assert.Equal(t, "Jupyternaut", cfg.Name)
	assert.Nil(t, cfg.Team)

	p, err := cfg.Build(noopModel{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Jupyternaut", p.Name())
	assert.Equal(t, 4, p.WindowSize())
	assert.Equal(t, DefaultAvatarPath, p.AvatarPath())
	assert.Equal(t, "Jupyternaut", p.Agent().Info().Name)
}

func TestParseTeamConfig(t *testing.T) {
	cfg, err := Parse([]byte(`name: DevPersona
provider_name: test-provider
model_id: test-model
team:
  name: dev-team
  policy_instructions:
    - Keep handoffs clean
  members:
    - name: planner
      role: plans things
    - name: coder
      role: writes code
      capabilities: [execute_code]
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Team)

	p, err := cfg.Build(noopModel{}, testRegistry())
	require.NoError(t, err)

	tm, ok := p.Agent().(*team.Team)
	require.True(t, ok)
	assert.Equal(t, "dev-team", tm.Info().Name)
	assert.Len(t, tm.Members(), 2)
	assert.Len(t, tm.FindMember("coder").Tools(), 1)
	assert.Empty(t, tm.FindMember("planner").Tools())
}

func TestBuildUnregisteredCapability(t *testing.T) {
	cfg := &Config{
		Name:         "X",
		ProviderName: "p",
		ModelID:      "m",
		Team: &TeamConfig{
			Name: "t",
			Members: []MemberConfig{
				{Name: "a", Capabilities: []string{"execute_code"}},
			},
		},
	}
	_, err := cfg.Build(noopModel{}, nil)
	assert.ErrorContains(t, err, "execute_code")
}

func TestDefaultWindowSize(t *testing.T) {
	cfg := &Config{Name: "X", ProviderName: "p", ModelID: "m"}
	p, err := cfg.Build(noopModel{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.WindowSize())
}

func TestDevTeamRoster(t *testing.T) {
	cfg := DevTeam("test-provider", "test-model")
	require.NotNil(t, cfg.Team)
	require.Len(t, cfg.Team.Members, 5)

	names := make([]string, 0, 5)
	for _, m := range cfg.Team.Members {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"planner", "coder", "tester", "gitHub", "fileManager"}, names)

	p, err := cfg.Build(noopModel{}, testRegistry())
	require.NoError(t, err)

	tm, ok := p.Agent().(*team.Team)
	require.True(t, ok)
	assert.Equal(t, "dev-team", tm.Info().Name)
	assert.Len(t, tm.FindMember("fileManager").Tools(), 2)
	assert.Len(t, tm.FindMember("gitHub").Tools(), 1)
	assert.Empty(t, tm.FindMember("planner").Tools())
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load("testdata/persona.yaml")
	require.NoError(t, err)
	assert.Equal(t, "NotebookHelper", cfg.Name)
	require.NotNil(t, cfg.Breaker)
	assert.Equal(t, uint32(3), cfg.Breaker.MaxFailures)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	assert.Error(t, err)
}
