//go:build unix

package daemon

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaemonizeAsChildResetsCwdAndUmask(t *testing.T) {
	origChdir, origUmask := chdirFunc, umaskFunc
	defer func() { chdirFunc, umaskFunc = origChdir, origUmask }()

	var gotDir string
	var gotMask int
	chdirFunc = func(dir string) error { gotDir = dir; return nil }
	umaskFunc = func(mask int) int { gotMask = mask; return 0 }

	require.NoError(t, os.Setenv("TROGDOR_DAEMON_CHILD", "1"))
	defer os.Unsetenv("TROGDOR_DAEMON_CHILD")

	err := Daemonize()
	require.NoError(t, err)
	assert.Equal(t, "/", gotDir)
	assert.Equal(t, 0, gotMask)
}
