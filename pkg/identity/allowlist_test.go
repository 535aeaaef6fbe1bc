package identity

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowList_Matches(t *testing.T) {
	list := NewAllowList([]string{"jonphipps", "admin@ifla.org", " ", ""})

	assert.True(t, list.Matches("jonphipps", ""))
	assert.True(t, list.Matches("", "admin@ifla.org"))
	assert.True(t, list.Matches("jonphipps", "other@ifla.org"))

	// Username comparison is case-sensitive, email exact.
	assert.False(t, list.Matches("JonPhipps", ""))
	assert.False(t, list.Matches("", "Admin@ifla.org"))
	assert.False(t, list.Matches("", ""))

	assert.Equal(t, 2, list.Len())
}

func TestAllowList_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admins.txt")
	content := "# emergency admins\njonphipps\n\nadmin@ifla.org\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	list := NewAllowList(nil)
	require.NoError(t, list.LoadFile(path))

	assert.True(t, list.Matches("jonphipps", ""))
	assert.True(t, list.Matches("", "admin@ifla.org"))
	assert.Equal(t, 2, list.Len())
}

func TestAllowList_LoadFile_Missing(t *testing.T) {
	list := NewAllowList([]string{"keep"})
	assert.Error(t, list.LoadFile("/nonexistent/admins.txt"))
	// Previous entries survive a failed load.
	assert.True(t, list.Matches("keep", ""))
}

func TestAllowList_Watch_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admins.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0600))

	list := NewAllowList(nil)
	require.NoError(t, list.LoadFile(path))
	require.True(t, list.Matches("first", ""))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, list.Watch(ctx, path, logger))

	require.NoError(t, os.WriteFile(path, []byte("second\n"), 0600))

	assert.Eventually(t, func() bool {
		return list.Matches("second", "") && !list.Matches("first", "")
	}, 3*time.Second, 20*time.Millisecond)
}
