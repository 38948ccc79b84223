package gitutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) plumbing.Hash {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))

	w, err := repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add(name)
	require.NoError(t, err)

	hash, err := w.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash
}

func TestPrepare(t *testing.T) {
	ctx := context.Background()
	remotePath := t.TempDir()
	localPath := filepath.Join(t.TempDir(), "work")

	remote, err := git.PlainInit(remotePath, false)
	require.NoError(t, err)
	first := commitFile(t, remote, remotePath, "main.go", "package main\n")

	_, err = git.PlainClone(localPath, false, &git.CloneOptions{URL: remotePath})
	require.NoError(t, err)

	// a commit the working copy has not seen yet
	second := commitFile(t, remote, remotePath, "main.go", "package main\n\nfunc main() {}\n")

	client := NewClient(slog.Default(), "")

	t.Run("fetches and checks out unknown commit", func(t *testing.T) {
		require.NoError(t, client.Prepare(ctx, localPath, second.String()))
		head, err := client.HeadSHA(localPath)
		require.NoError(t, err)
		assert.Equal(t, second.String(), head)

		content, err := os.ReadFile(filepath.Join(localPath, "main.go"))
		require.NoError(t, err)
		assert.Contains(t, string(content), "func main()")
	})

	t.Run("checks out known commit", func(t *testing.T) {
		require.NoError(t, client.Prepare(ctx, localPath, first.String()))
		head, err := client.HeadSHA(localPath)
		require.NoError(t, err)
		assert.Equal(t, first.String(), head)
	})

	t.Run("unknown commit fails", func(t *testing.T) {
		err := client.Prepare(ctx, localPath, "0000000000000000000000000000000000000001")
		assert.Error(t, err)
	})

	t.Run("missing repository fails", func(t *testing.T) {
		err := client.Prepare(ctx, filepath.Join(t.TempDir(), "nope"), first.String())
		assert.Error(t, err)
	})
}
