package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkasajim/realtime-gmail-monitor/internal/models"
)

func testAccount(t *testing.T) *models.Account {
	return &models.Account{
		Name:       "Primary Account",
		Email:      "primary@gmail.com",
		CursorFile: filepath.Join(t.TempDir(), "cursor.txt"),
	}
}

func TestCursorRepository_LoadMissingFile(t *testing.T) {
	repo := NewCursorRepository()
	account := testAccount(t)

	state, err := repo.Load(context.Background(), account)

	require.NoError(t, err)
	assert.True(t, state.Empty())
}

func TestCursorRepository_LoadLegacyFormat(t *testing.T) {
	repo := NewCursorRepository()
	account := testAccount(t)
	require.NoError(t, os.WriteFile(account.CursorFile, []byte("12345\n"), 0o644))

	state, err := repo.Load(context.Background(), account)

	require.NoError(t, err)
	assert.Equal(t, "12345", state.LastHistoryId)
	assert.Empty(t, state.LastSeenMessageId)
}

func TestCursorRepository_LoadTwoFieldFormat(t *testing.T) {
	repo := NewCursorRepository()
	account := testAccount(t)
	require.NoError(t, os.WriteFile(account.CursorFile, []byte("12345,18c2a9f0b3d4e5f6"), 0o644))

	state, err := repo.Load(context.Background(), account)

	require.NoError(t, err)
	assert.Equal(t, "12345", state.LastHistoryId)
	assert.Equal(t, "18c2a9f0b3d4e5f6", state.LastSeenMessageId)
}

func TestCursorRepository_LoadEmptyFile(t *testing.T) {
	repo := NewCursorRepository()
	account := testAccount(t)
	require.NoError(t, os.WriteFile(account.CursorFile, []byte("  \n"), 0o644))

	state, err := repo.Load(context.Background(), account)

	require.NoError(t, err)
	assert.True(t, state.Empty())
}

func TestCursorRepository_CommitAndReload(t *testing.T) {
	repo := NewCursorRepository()
	account := testAccount(t)

	err := repo.Commit(context.Background(), account, models.CursorState{
		LastHistoryId:     "500",
		LastSeenMessageId: "abc",
	})
	require.NoError(t, err)

	state, err := repo.Load(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, "500", state.LastHistoryId)
	assert.Equal(t, "abc", state.LastSeenMessageId)
}

func TestCursorRepository_CommitWithoutMessageIdWritesLegacyRecord(t *testing.T) {
	repo := NewCursorRepository()
	account := testAccount(t)

	err := repo.Commit(context.Background(), account, models.CursorState{LastHistoryId: "512"})
	require.NoError(t, err)

	content, err := os.ReadFile(account.CursorFile)
	require.NoError(t, err)
	assert.Equal(t, "512", string(content))
}

func TestCursorRepository_CommitReplacesWholeRecord(t *testing.T) {
	repo := NewCursorRepository()
	account := testAccount(t)
	require.NoError(t, os.WriteFile(account.CursorFile, []byte("100,old-message-id"), 0o644))

	err := repo.Commit(context.Background(), account, models.CursorState{LastHistoryId: "200"})
	require.NoError(t, err)

	content, err := os.ReadFile(account.CursorFile)
	require.NoError(t, err)
	assert.Equal(t, "200", string(content))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(account.CursorFile))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCursorRepository_CommitCreatesParentDirectory(t *testing.T) {
	repo := NewCursorRepository()
	account := testAccount(t)
	account.CursorFile = filepath.Join(t.TempDir(), "nested", "dir", "cursor.txt")

	err := repo.Commit(context.Background(), account, models.CursorState{LastHistoryId: "1"})
	require.NoError(t, err)

	state, err := repo.Load(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, "1", state.LastHistoryId)
}
