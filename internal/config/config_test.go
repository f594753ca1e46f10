package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"AIPROXY_TOKEN", "AUTOLYSIS_API_KEY", "AUTOLYSIS_CLUSTERS", "AUTOLYSIS_PROVIDER", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "aiproxy", c.Provider)
	assert.Equal(t, 3, c.Clusters)
	assert.InDelta(t, 0.05, c.Contamination, 1e-12)
	assert.Equal(t, 30, c.HTTPTimeoutSec)
	assert.Equal(t, 1, c.RetryMaxAttempts)
	assert.Equal(t, "narration.txt", c.ReportName)
	assert.True(t, c.ClusterChart)
	assert.Empty(t, c.APIKey)
}

func TestLoadTokenFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("AIPROXY_TOKEN", "tok-123")
	c, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, c.APIKey)
	assert.Equal(t, "tok-123", c.ResolveAPIKey())

	t.Setenv("AUTOLYSIS_API_KEY", "override")
	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "override", c.APIKey)
	assert.Equal(t, "override", c.ResolveAPIKey())
}

func TestAIProxyTokenStaysWithAIProxy(t *testing.T) {
	isolate(t)
	t.Setenv("AIPROXY_TOKEN", "aiproxy-secret")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("AUTOLYSIS_PROVIDER", "openai")
	c, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, c.APIKey)
	assert.Equal(t, "sk-openai", c.ResolveAPIKey())

	c.Provider = "anthropic"
	assert.Empty(t, c.ResolveAPIKey())
	c.Provider = "ollama"
	assert.Empty(t, c.ResolveAPIKey())
}

func TestEnvBeatsFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clusters: 4\nmodel: gpt-4o\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Clusters)
	assert.Equal(t, "gpt-4o", c.Model)

	t.Setenv("AUTOLYSIS_CLUSTERS", "5")
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Clusters)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)

	bad := *c
	bad.Contamination = 0.7
	require.ErrorContains(t, bad.Validate(), "Contamination")

	bad = *c
	bad.Provider = "gemini"
	require.ErrorContains(t, bad.Validate(), "Provider")

	bad = *c
	bad.ReportName = "../x.txt"
	require.ErrorContains(t, bad.Validate(), "ReportName")

	bad = *c
	bad.BaseURL = "not a url"
	require.ErrorContains(t, bad.Validate(), "BaseURL")
}

func TestSaveRoundTrip(t *testing.T) {
	home := isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	c.Model = "claude-3-5-haiku-latest"
	c.Provider = "anthropic"
	c.Clusters = 6
	require.NoError(t, Save(c, ""))

	_, err = os.Stat(filepath.Join(home, ".autolysis", "config.yaml"))
	require.NoError(t, err)

	got, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", got.Provider)
	assert.Equal(t, 6, got.Clusters)
	assert.Equal(t, "claude-3-5-haiku-latest", got.Model)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AIPROXY_TOKEN=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("AIPROXY_TOKEN") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", c.ResolveAPIKey())
}

func TestResolveAPIKeyAndRedact(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	c := &Global{Provider: "openai"}
	assert.Equal(t, "sk-openai", c.ResolveAPIKey())

	c.APIKey = "abcd1234efgh"
	assert.Equal(t, "abcd1234efgh", c.ResolveAPIKey())
	assert.Equal(t, "abcd****efgh", c.Redacted().APIKey)
	assert.Equal(t, "abcd1234efgh", c.APIKey)
}

func TestSet(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)

	require.NoError(t, Set(c, "clusters", "4"))
	require.NoError(t, Set(c, "contamination", "0.1"))
	require.NoError(t, Set(c, "html_report", "true"))
	require.NoError(t, Set(c, "model", "gpt-4o"))
	assert.Equal(t, 4, c.Clusters)
	assert.InDelta(t, 0.1, c.Contamination, 1e-12)
	assert.True(t, c.HTMLReport)
	assert.Equal(t, "gpt-4o", c.Model)

	require.ErrorContains(t, Set(c, "nope", "1"), "unknown key")
	require.Error(t, Set(c, "clusters", "many"))
	require.Error(t, Set(c, "provider", "gemini"))
	assert.Equal(t, "aiproxy", c.Provider)
}
