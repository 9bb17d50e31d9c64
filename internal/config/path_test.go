package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("LEDGERMIND_TEST_DIR", "/var/data")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "absolute untouched", input: "/tmp/ledger.db", expected: "/tmp/ledger.db"},
		{name: "tilde prefix", input: "~/ledger.db", expected: filepath.Join(home, "ledger.db")},
		{name: "bare tilde", input: "~", expected: home},
		{name: "env var", input: "$LEDGERMIND_TEST_DIR/ledger.db", expected: "/var/data/ledger.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandPath(tt.input))
		})
	}
}

func TestDefaultDataDir(t *testing.T) {
	dir := DefaultDataDir()
	assert.NotEmpty(t, dir)
	assert.Contains(t, dir, "ledgermind")
}
