package devenv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPassthrough(t *testing.T) {
	for _, p := range []string{"", "csv", "/srv/data/journal.db", ":memory:"} {
		resolved, err := ResolvePath(p)
		require.NoError(t, err)
		require.Equal(t, p, resolved)
	}
}

func TestResolvePathDevState(t *testing.T) {
	resolved, err := ResolvePath("<dev_state>/journal.db")
	require.NoError(t, err)
	require.Equal(t, "journal.db", filepath.Base(resolved))
	require.Equal(t, ".state", filepath.Base(filepath.Dir(resolved)))
}
