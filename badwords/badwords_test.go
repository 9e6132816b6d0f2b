package badwords

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joy095/staybook/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLoggers()
}

func TestContains(t *testing.T) {
	f := New("Darn", " heck ")

	assert.True(t, f.Contains("What the HECK, this place"))
	assert.True(t, f.Contains("darn!"))
	assert.False(t, f.Contains("Checked in late"))
	assert.False(t, f.Contains(""))
}

func TestZeroAndNilFilterMatchNothing(t *testing.T) {
	var zero Filter
	assert.False(t, zero.Contains("darn"))

	var nilFilter *Filter
	assert.False(t, nilFilter.Contains("darn"))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en.txt")
	require.NoError(t, os.WriteFile(path, []byte("darn\n\n  heck\n"), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
	assert.True(t, f.Contains("oh heck"))

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
