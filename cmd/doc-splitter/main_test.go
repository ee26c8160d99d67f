package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"doc-splitter/internal/llm"
	"doc-splitter/internal/models"
	"doc-splitter/pkg/auth"
	"doc-splitter/pkg/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	reply  string
	closed bool
}

func (s *stubProvider) Chat(context.Context, []llm.Message) (string, error) { return s.reply, nil }

func (s *stubProvider) ChatWithVision(context.Context, string, [][]byte, string) (string, error) {
	return s.reply, nil
}

func (s *stubProvider) PromptTemplate(name string, vars map[string]any) (string, error) {
	return llm.DefaultTemplates().Render(name, vars)
}

func (s *stubProvider) Close() error {
	s.closed = true
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{SecretKey: "cli-secret", Expiration: time.Hour},
		LLM: config.LLMConfig{Provider: config.ProviderOpenAI},
		Splitter: config.SplitterConfig{
			BoundaryThreshold: 0.6,
			PairExcerptChars:  1500,
			BatchPageChars:    3000,
		},
	}
}

func testEnv(p *stubProvider, stdin string) (*env, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &env{
		loadConfig: func() (*config.Config, error) { return testConfig(), nil },
		newProvider: func(context.Context, *config.LLMConfig, *zap.Logger) (llm.Provider, error) {
			return p, nil
		},
		stdin:  strings.NewReader(stdin),
		stdout: out,
	}, out
}

func TestAnalyzeCmd_FromFile(t *testing.T) {
	p := &stubProvider{reply: `{"totalInvoices": 2, "pageGroups": [{"pages": [1]}, {"pages": [2]}]}`}
	e, out := testEnv(p, "")

	path := filepath.Join(t.TempDir(), "pages.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pages": [
		{"page_number": 1, "content": "Uber"},
		{"page_number": 2, "content": "Lyft"}
	]}`), 0o600))

	cmd := rootCmd(e)
	cmd.SetArgs([]string{"analyze", "--pages", path})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var result models.PageAnalysisResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 2, result.TotalInvoices)
	assert.True(t, p.closed)
}

func TestAnalyzeCmd_FromStdin(t *testing.T) {
	p := &stubProvider{reply: `{"sameDocument": true, "confidence": 0.9}`}
	e, out := testEnv(p, `{"pages": [
		{"page_number": 1, "content": "a", "image": "iVBORw0KGgo="},
		{"page_number": 2, "content": "b", "image": "iVBORw0KGgo="}
	]}`)

	cmd := rootCmd(e)
	cmd.SetArgs([]string{"analyze", "-p", "-"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var result models.PageAnalysisResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	require.Len(t, result.PageGroups, 1)
	assert.Equal(t, []int{1, 2}, result.PageGroups[0].Pages)
}

func TestAnalyzeCmd_RejectsDuplicatePages(t *testing.T) {
	e, _ := testEnv(&stubProvider{}, `{"pages": [{"page_number": 1}, {"page_number": 1}]}`)

	cmd := rootCmd(e)
	cmd.SetArgs([]string{"analyze", "--pages", "-"})
	err := cmd.ExecuteContext(context.Background())

	assert.ErrorContains(t, err, "invalid pages")
}

func TestTokenCmd(t *testing.T) {
	e, out := testEnv(&stubProvider{}, "")
	userID := uuid.New()

	cmd := rootCmd(e)
	cmd.SetArgs([]string{"token", "--user", userID.String(), "--name", "ops"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	claims, err := auth.NewJWTManager("cli-secret", time.Hour).ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "ops", claims.Username)
}

func TestTokenCmd_InvalidUser(t *testing.T) {
	e, _ := testEnv(&stubProvider{}, "")

	cmd := rootCmd(e)
	cmd.SetArgs([]string{"token", "--user", "bob"})

	assert.ErrorContains(t, cmd.ExecuteContext(context.Background()), "invalid --user")
}

func TestSplitterConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Splitter.BoundaryThreshold = 0.75

	c := splitterConfig(cfg)

	assert.Equal(t, 0.75, c.BoundaryThreshold)
	assert.Equal(t, 1500, c.PairExcerptChars)
	assert.Equal(t, 0.3, c.FallbackConfidence)
}
