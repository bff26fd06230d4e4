package paste

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFromFormField(t *testing.T) {
	samples := map[string]Kind{
		"file":        File,
		"remote":      RemoteFile,
		"oneshot":     Oneshot,
		"url":         Url,
		"oneshot_url": OneshotUrl,
	}
	for field, want := range samples {
		kind, ok := KindFromFormField(field)
		assert.True(t, ok, "field %q", field)
		assert.Equal(t, want, kind, "field %q", field)
	}

	_, ok := KindFromFormField("attachment")
	assert.False(t, ok)
}

func TestKindPath(t *testing.T) {
	assert.Equal(t, "base", File.Path("base"))
	assert.Equal(t, "base", RemoteFile.Path("base"))
	assert.Equal(t, filepath.Join("base", "oneshot"), Oneshot.Path("base"))
	assert.Equal(t, filepath.Join("base", "url"), Url.Path("base"))
	assert.Equal(t, filepath.Join("base", "oneshot_url"), OneshotUrl.Path("base"))

	assert.Len(t, KindPaths("base"), 4)
}
