package paste

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeybek/gopaste/internal/config"
)

func storeConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testConfig()
	cfg.Server.UploadPath = t.TempDir()
	for _, kind := range Kinds {
		require.NoError(t, os.MkdirAll(kind.Path(cfg.Server.UploadPath), 0o750))
	}
	return cfg
}

func TestStoreFile(t *testing.T) {
	cfg := storeConfig(t)

	paste := Paste{Data: []byte("ABC"), Kind: File}
	served, err := paste.StoreFile("test.txt", nil, "", cfg)
	require.NoError(t, err)
	assert.Equal(t, "test.txt", served)

	data, err := os.ReadFile(filepath.Join(cfg.Server.UploadPath, "test.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ABC", string(data))
}

func TestStoreFileCollision(t *testing.T) {
	cfg := storeConfig(t)

	paste := Paste{Data: []byte("first"), Kind: File}
	_, err := paste.StoreFile("taken.txt", nil, "", cfg)
	require.NoError(t, err)

	paste = Paste{Data: []byte("second"), Kind: File}
	_, err = paste.StoreFile("taken.txt", nil, "", cfg)
	assert.ErrorIs(t, err, ErrFileExists)

	// the winner's bytes survive
	data, err := os.ReadFile(filepath.Join(cfg.Server.UploadPath, "taken.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestStoreFileExpiry(t *testing.T) {
	cfg := storeConfig(t)

	expiry := time.Now().UnixMilli() + 60_000
	paste := Paste{Data: []byte("soon gone"), Kind: File}
	served, err := paste.StoreFile("fleeting.txt", &expiry, "", cfg)
	require.NoError(t, err)

	// the served name hides the timestamp which the disk name carries
	assert.Equal(t, "fleeting.txt", served)
	onDisk := filepath.Join(cfg.Server.UploadPath, "fleeting.txt."+strconv.FormatInt(expiry, 10))
	assert.FileExists(t, onDisk)

	// an expired sibling does not block a new upload
	past := time.Now().UnixMilli() - 1
	require.NoError(t, os.Rename(onDisk,
		filepath.Join(cfg.Server.UploadPath, "fleeting.txt."+strconv.FormatInt(past, 10))))
	_, err = Paste{Data: []byte("again"), Kind: File}.StoreFile("fleeting.txt", nil, "", cfg)
	assert.NoError(t, err)
}

func TestStoreFileDedup(t *testing.T) {
	cfg := storeConfig(t)
	noDuplicates := false
	cfg.Paste.DuplicateFiles = &noDuplicates
	cfg.Paste.RandomURL = &config.RandomURLConfig{Type: config.RandomAlphanumeric, Length: 8}

	first, err := Paste{Data: []byte("same bytes"), Kind: File}.StoreFile("a.txt", nil, "", cfg)
	require.NoError(t, err)
	second, err := Paste{Data: []byte("same bytes"), Kind: File}.StoreFile("b.txt", nil, "", cfg)
	require.NoError(t, err)

	// dedup returns the canonical name and writes nothing new
	assert.Equal(t, first, second)
	entries, err := os.ReadDir(cfg.Server.UploadPath)
	require.NoError(t, err)
	files := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			files++
		}
	}
	assert.Equal(t, 1, files)
}

func TestFindDuplicateSkipsPasswordFiles(t *testing.T) {
	cfg := storeConfig(t)
	sidecar := filepath.Join(cfg.Server.UploadPath, "x.txt.password")
	require.NoError(t, os.WriteFile(sidecar, []byte("same bytes"), 0o600))

	_, ok := FindDuplicate([]byte("same bytes"), cfg.Server.UploadPath)
	assert.False(t, ok)
}

func TestStoreFileBlacklist(t *testing.T) {
	cfg := storeConfig(t)
	cfg.Paste.MimeBlacklist = []string{"text/plain"}

	_, err := Paste{Data: []byte("plain text"), Kind: File}.StoreFile("no.txt", nil, "", cfg)
	assert.ErrorIs(t, err, ErrTypeBlacklisted)
}

func TestStoreFileOverrideName(t *testing.T) {
	cfg := storeConfig(t)
	cfg.Paste.RandomURL = &config.RandomURLConfig{Type: config.RandomAlphanumeric, Length: 8}

	served, err := Paste{Data: []byte("ABC"), Kind: File}.StoreFile("ignored.txt", nil, "chosen.txt", cfg)
	require.NoError(t, err)
	assert.Equal(t, "chosen.txt", served)
}

func TestStoreFileOneshot(t *testing.T) {
	cfg := storeConfig(t)

	served, err := Paste{Data: []byte("once"), Kind: Oneshot}.StoreFile("secret.txt", nil, "", cfg)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.Server.UploadPath, "oneshot", served))
}

func TestStoreURL(t *testing.T) {
	cfg := storeConfig(t)

	served, err := Paste{Data: []byte("https://example.org/"), Kind: Url}.StoreURL(nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, "url", served)

	data, err := os.ReadFile(filepath.Join(cfg.Server.UploadPath, "url", "url"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/", string(data))

	_, err = Paste{Data: []byte("testurl.com"), Kind: Url}.StoreURL(nil, cfg)
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = Paste{Data: []byte("ftp://example.org/x"), Kind: Url}.StoreURL(nil, cfg)
	assert.ErrorIs(t, err, ErrInvalidURL)
}
