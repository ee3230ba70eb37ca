package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookstore/services/library/internal/apperr"
	"github.com/bookstore/services/library/internal/db"
	"github.com/bookstore/services/library/internal/testutil"
	"github.com/bookstore/services/library/pkg/logger"
)

func setupMemberRepo(t *testing.T) *MemberRepository {
	database := testutil.NewTestDB(t)
	return NewMemberRepository(database, logger.NewLogger("test", "info"))
}

func collectMembers(t *testing.T, r *MemberRepository, keyword string) []db.Member {
	t.Helper()
	var members []db.Member
	for member, err := range r.SearchMembers(context.Background(), keyword) {
		require.NoError(t, err)
		members = append(members, member)
	}
	return members
}

func TestCreateAndGetMember(t *testing.T) {
	repo := setupMemberRepo(t)
	ctx := context.Background()

	member := &db.Member{Name: "Ada Lovelace", ContactInfo: "ada@example.com"}
	require.NoError(t, repo.CreateMember(ctx, member))
	assert.NotZero(t, member.ID)

	got, err := repo.GetMember(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, "ada@example.com", got.ContactInfo)

	_, err = repo.GetMember(ctx, member.ID+1)
	assert.ErrorIs(t, err, apperr.ErrMemberNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMembersShareContactInfo(t *testing.T) {
	repo := setupMemberRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateMember(ctx, &db.Member{Name: "A", ContactInfo: "family@example.com"}))
	require.NoError(t, repo.CreateMember(ctx, &db.Member{Name: "B", ContactInfo: "family@example.com"}))

	assert.Len(t, collectMembers(t, repo, "family"), 2)
}

func TestSearchMembers(t *testing.T) {
	repo := setupMemberRepo(t)
	ctx := context.Background()

	for _, m := range []*db.Member{
		{Name: "Ada Lovelace", ContactInfo: "ada@example.com"},
		{Name: "Alan Turing", ContactInfo: "555-0100"},
		{Name: "Grace Hopper", ContactInfo: ""},
	} {
		require.NoError(t, repo.CreateMember(ctx, m))
	}

	assert.Len(t, collectMembers(t, repo, ""), 3)
	assert.Len(t, collectMembers(t, repo, "  "), 3)

	result := collectMembers(t, repo, "TURING")
	require.Len(t, result, 1)
	assert.Equal(t, "Alan Turing", result[0].Name)

	result = collectMembers(t, repo, "example.com")
	require.Len(t, result, 1)
	assert.Equal(t, "Ada Lovelace", result[0].Name)

	result = collectMembers(t, repo, "a")
	require.Len(t, result, 3)
	assert.Equal(t, "Ada Lovelace", result[0].Name, "results are ordered by id")

	assert.Empty(t, collectMembers(t, repo, "_"))
}

func TestSearchMembersFoldsAccentedCase(t *testing.T) {
	repo := setupMemberRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateMember(ctx, &db.Member{Name: "Zoë Ångström", ContactInfo: "ÉMILE@EXAMPLE.COM"}))

	result := collectMembers(t, repo, "ÅNGSTRÖM")
	require.Len(t, result, 1)
	assert.Equal(t, "Zoë Ångström", result[0].Name)

	assert.Len(t, collectMembers(t, repo, "émile@"), 1)
	assert.Empty(t, collectMembers(t, repo, "zoe"), "accents are not stripped")
}
