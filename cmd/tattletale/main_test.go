package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejisec/tattletale/internal/ingest"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"missing dump", fmt.Errorf("failed to load inputs: %w", &ingest.MissingInputError{Path: "x", Err: os.ErrNotExist}), 2},
		{"no dumps", fmt.Errorf("failed to load inputs: %w", ingest.ErrNoAccountFiles), 2},
		{"other", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestAnalyzeWritesExports(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "dc.ntds")
	pot := filepath.Join(dir, "hashcat.pot")
	out := filepath.Join(dir, "out")

	require.NoError(t, os.WriteFile(dump, []byte(
		"CORP\\alice:500:aad3b435b51404eeaad3b435b51404ee:NTHASH1:::\n"+
			"CORP\\bob:501:aad3b435b51404eeaad3b435b51404ee:NTHASH1:::\n"), 0o644))
	require.NoError(t, os.WriteFile(pot, []byte("NTHASH1:Password1\n"), 0o644))

	rootCmd.SetArgs([]string{"analyze", "-d", dump, "-p", pot, "-o", out, "--markdown", "--mmap-threshold", "0"})
	require.NoError(t, Execute(context.Background()))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
