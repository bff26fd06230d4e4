package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeJoin(t *testing.T) {
	base := filepath.Join("var", "uploads")
	samples := []struct {
		part string
		ok   bool
	}{
		{"file.txt", true},
		{"sub/file.txt", true},
		{"a/../file.txt", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../file.txt", false},
		{"a/../../file.txt", false},
		{"../../etc/passwd", false},
		{"/etc/passwd", false},
	}
	for _, sample := range samples {
		joined, err := SafeJoin(base, sample.part)
		if !sample.ok {
			assert.Error(t, err, "part %q", sample.part)
			continue
		}
		require.NoError(t, err, "part %q", sample.part)
		assert.True(t, strings.HasPrefix(joined, base+string(os.PathSeparator)),
			"joined %q escapes %q", joined, base)
	}
}

func TestExpiryMillis(t *testing.T) {
	millis, ok := ExpiryMillis("file.txt.1700000000000")
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), millis)

	_, ok = ExpiryMillis("file.txt")
	assert.False(t, ok)

	// nine digits are a regular extension, not a timestamp
	_, ok = ExpiryMillis("file.123456789")
	assert.False(t, ok)
}

func TestResolveTimestamped(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "expired.file1")
	stamped := fmt.Sprintf("%s.%d", plain, time.Now().UnixMilli()+100)
	require.NoError(t, os.WriteFile(stamped, []byte{}, 0o600))

	assert.Equal(t, stamped, ResolveTimestamped(plain))
	// the suffix itself is stripped before matching
	assert.Equal(t, stamped, ResolveTimestamped(stamped))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, plain, ResolveTimestamped(plain))
}

func TestExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	stamped := filepath.Join(dir, fmt.Sprintf("expired.file2.%d", time.Now().UnixMilli()+100))
	require.NoError(t, os.WriteFile(stamped, []byte{}, 0o600))
	eternal := filepath.Join(dir, "kept.txt")
	require.NoError(t, os.WriteFile(eternal, []byte{}, 0o600))

	assert.Empty(t, ExpiredFiles([]string{dir}))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{stamped}, ExpiredFiles([]string{dir}))
}
