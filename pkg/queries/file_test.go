package queries

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("cat\n\n  red panda  \r\n# skipped\ndog"), 0644))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "red panda", "dog"}, got)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	got, err := Parse(strings.NewReader("\n \n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMerge(t *testing.T) {
	got := Merge([]string{"cat", " dog"}, nil, []string{"dog", "", "fox", "cat"})
	assert.Equal(t, []string{"cat", "dog", "fox"}, got)
}
