package adminrepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faqbot/internal/domain/auth"
)

func TestStaticRepository_Lookup(t *testing.T) {
	repo := NewStaticRepository([]auth.Admin{
		{Username: " Ana ", PasswordHash: "hash-a"},
		{Username: "sin-hash"},
		{Username: "", PasswordHash: "hash-x"},
	})
	require.Equal(t, 1, repo.Len())

	admin, ok, err := repo.GetByUsername(context.Background(), "ANA")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ana", admin.Username)
	require.Equal(t, "hash-a", admin.PasswordHash)

	_, ok, err = repo.GetByUsername(context.Background(), "sin-hash")
	require.NoError(t, err)
	require.False(t, ok)
}
