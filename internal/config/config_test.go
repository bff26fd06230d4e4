package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleConfig = `
[config]
refresh_rate = "1m"

[server]
address = "0.0.0.0:8000"
max_content_length = "10MB"
upload_path = "./upload"
timeout = "30s"
expose_version = true
handle_spaces = "replace"

[landing_page]
text = "welcome"

[paste]
random_url = { type = "alphanumeric", length = 8 }
default_extension = "txt"
duplicate_files = false
default_expiry = "1h"
delete_expired_files = { enabled = true, interval = "5m" }
mime_blacklist = ["application/x-dosexec"]
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Address)
	assert.Equal(t, ByteSize(10_000_000), cfg.Server.MaxContentLength)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout.Duration)
	assert.True(t, cfg.Server.ExposeVersion)
	assert.False(t, cfg.Server.ExposeList)
	assert.Equal(t, time.Minute, cfg.Settings.RefreshRate.Duration)
	assert.Equal(t, "welcome", cfg.LandingPage.Text)
	assert.False(t, cfg.Paste.AllowDuplicates())
	assert.Equal(t, time.Hour, cfg.Paste.DefaultExpiry.Duration)
	assert.Equal(t, 5*time.Minute, cfg.Paste.DeleteExpiredFiles.Interval.Duration)
	assert.Equal(t, RandomAlphanumeric, cfg.Paste.RandomURL.Type)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[server]\nupload_path = \"./upload\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Address)
	assert.Equal(t, "txt", cfg.Paste.DefaultExtension)
	assert.True(t, cfg.Paste.AllowDuplicates())
	assert.Nil(t, cfg.Paste.RandomURL)
}

func TestTokens(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Nil(t, cfg.Tokens(TokenAuth))
	assert.Nil(t, cfg.Tokens(TokenDelete))

	t.Setenv(AuthTokenEnv, "env_auth")
	t.Setenv(DeleteTokenEnv, "env_delete")
	cfg.Server.AuthTokens = []string{"may_the_force_be_with_you", ""}
	cfg.Server.DeleteTokens = []string{"i_am_your_father", "  "}

	assert.ElementsMatch(t, []string{"may_the_force_be_with_you", "env_auth"}, cfg.Tokens(TokenAuth))
	assert.ElementsMatch(t, []string{"i_am_your_father", "env_delete"}, cfg.Tokens(TokenDelete))

	// blank tokens alone mean "not configured"
	t.Setenv(AuthTokenEnv, "")
	cfg.Server.AuthTokens = []string{"  "}
	assert.Nil(t, cfg.Tokens(TokenAuth))
}

func TestDeprecatedFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[server]
upload_path = "./upload"
auth_token = "legacy"
landing_page = "old welcome"
`))
	require.NoError(t, err)

	// deprecated fields keep working and only warn
	assert.Contains(t, cfg.Tokens(TokenAuth), "legacy")
	cfg.WarnDeprecation(zerolog.Nop())
}

func TestRandomURLGenerate(t *testing.T) {
	petnames := &RandomURLConfig{Type: RandomPetName, Words: 3, Separator: "~"}
	assert.Len(t, strings.Split(petnames.Generate(), "~"), 3)

	alphanumeric := &RandomURLConfig{Type: RandomAlphanumeric, Length: 21}
	assert.Len(t, alphanumeric.Generate(), 21)

	var off *RandomURLConfig
	assert.Empty(t, off.Generate())

	disabled := false
	assert.Empty(t, (&RandomURLConfig{Enabled: &disabled}).Generate())
}

func TestSpaceHandling(t *testing.T) {
	assert.Equal(t, "file_with_spaces.txt", SpaceReplace.Process("file with spaces.txt"))
	assert.Equal(t, "file%20with%20spaces.txt", SpaceEncode.Process("file with spaces.txt"))
	assert.Equal(t, "file with spaces.txt", SpaceHandling("").Process("file with spaces.txt"))
}

func TestHolder(t *testing.T) {
	first := &Config{}
	holder := NewHolder(first)
	assert.Same(t, first, holder.Load())

	second := &Config{}
	holder.Store(second)
	assert.Same(t, second, holder.Load())
}
