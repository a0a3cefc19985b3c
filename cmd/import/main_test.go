package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aapl.csv"), []byte("2024-01-02,1,1,1,1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MSFT.csv"), []byte("2024-01-02,1,1,1,1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	files, err := collectFiles("", "", dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"AAPL": filepath.Join(dir, "aapl.csv"),
		"MSFT": filepath.Join(dir, "MSFT.csv"),
	}, files)

	files, err = collectFiles(" spy ", "spy.csv", "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"SPY": "spy.csv"}, files)
}

func TestCollectFiles_Errors(t *testing.T) {
	tests := []struct {
		name              string
		symbol, file, dir string
	}{
		{"nothing", "", "", ""},
		{"file without symbol", "", "a.csv", ""},
		{"file and dir", "A", "a.csv", "."},
		{"empty dir", "", "", t.TempDir()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := collectFiles(tt.symbol, tt.file, tt.dir)
			assert.Error(t, err)
		})
	}
}
