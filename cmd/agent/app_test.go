package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/config"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, typ := range []string{config.StorageLocal, config.StorageSQLite, config.StorageMemory} {
		t.Run(typ, func(t *testing.T) {
			cfg := &config.Config{Storage: config.StorageConfig{Type: typ, Path: filepath.Join(dir, typ, "store")}}

			kv, err := openStorage(ctx, cfg, "ns")
			require.NoError(t, err)
			defer kv.Close()

			require.NoError(t, kv.Set(ctx, "k", "v"))
			v, ok, err := kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v", v)
		})
	}

	_, err := openStorage(ctx, &config.Config{Storage: config.StorageConfig{Type: "redis"}}, "ns")
	assert.Error(t, err)
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "punch", "status", "stats", "refresh", "report", "login", "logout", "token"})
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://hris.example.com/api")
	t.Setenv("AGENT_JWT_SECRET", "secret")

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--env-file", filepath.Join(t.TempDir(), "none.env"), "--subject", "ui"})
	require.NoError(t, root.Execute())

	var resp auth.AgentTokenResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)

	subject, err := jwt.NewJWTService("secret", 0).ValidateAgentToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ui", subject)
}

func TestStatusCommand_MemoryStorage(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://hris.example.com/api")
	t.Setenv("STORAGE_TYPE", "memory")

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"status", "--env-file", filepath.Join(t.TempDir(), "none.env")})
	require.NoError(t, root.Execute())

	var status map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.Equal(t, "not-marked", status["status"])
	assert.Equal(t, true, status["can_clock_in"])
}
