package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCIDs(t *testing.T) {
	cids, err := parseCIDs([]string{"2519", "2244"}, "702, 2519")
	require.NoError(t, err)
	assert.Equal(t, []int64{2519, 2244, 702}, cids, "duplicates collapse, order kept")
}

func TestParseCIDs_Invalid(t *testing.T) {
	_, err := parseCIDs([]string{"caffeine"}, "")
	require.Error(t, err)

	_, err = parseCIDs([]string{"-5"}, "")
	require.Error(t, err)

	_, err = parseCIDs(nil, "")
	require.Error(t, err, "empty input needs an explicit error")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly", truncate("exactly", 7))
	assert.Equal(t, "long st...", truncate("long string here", 10))
}

func TestReadCIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cids.txt")
	require.NoError(t, os.WriteFile(path, []byte("2519\n\n# caffeine alt\n2244\n"), 0o644))

	lines, err := readCIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"2519", "2244"}, lines)

	_, err = readCIDFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(unset)", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abcd"))
	assert.Equal(t, "****3456", maskSecret("sk-123456"))
}

func TestGetCLIContext_Fallback(t *testing.T) {
	cc := GetCLIContext(context.Background())
	require.NotNil(t, cc)
	assert.NotNil(t, cc.Config)
	assert.NotNil(t, cc.Logger)
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "ingest")
	assert.Contains(t, names, "search")
	assert.Contains(t, names, "config")
	assert.Contains(t, names, "serve")
}
