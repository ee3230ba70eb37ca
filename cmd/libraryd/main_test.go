package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("LIBRARY_CONFIG", "")
	t.Setenv("DB_DRIVER", "mysql")

	assert.Equal(t, 1, serve())
}

func TestServeReportsStartupFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	t.Setenv("LIBRARY_CONFIG", "")
	t.Setenv("LOG_LEVEL", "fatal")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(blocker, "library.db"))

	assert.Equal(t, 1, serve(), "a store that cannot be opened ends the process with status 1")
}
