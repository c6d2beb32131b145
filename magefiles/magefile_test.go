//go:build mage

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoLinesByPackage(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("internal/server/server.go", "package server\n\n  \nfunc A() {}\n")
	write("internal/server/server_test.go", "package server\n\nfunc TestA() {}\n")
	write("pkg/types/setting.go", "package types\n")
	write("_examples/other/main.go", "package main\n")
	write("magefiles/magefile.go", "package main\n")
	write("README.md", "words\n")

	counts, err := goLinesByPackage(root)
	require.NoError(t, err)

	rel := func(p string) string { return filepath.ToSlash(filepath.Join(root, p)) }
	assert.Equal(t, map[string][2]int{
		rel("internal/server"): {2, 2},
		rel("pkg/types"):       {1, 0},
	}, counts)
}
