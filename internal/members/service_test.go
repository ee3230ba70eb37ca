package members

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bookstore/services/library/internal/apperr"
	"github.com/bookstore/services/library/internal/db"
	"github.com/bookstore/services/library/internal/events"
	"github.com/bookstore/services/library/internal/metrics"
	"github.com/bookstore/services/library/internal/testutil"
)

func setupService(t *testing.T) (*Service, *events.Recorder) {
	rec := &events.Recorder{}
	return NewService(testutil.NewTestDB(t), rec, metrics.NewMetrics(nil), zap.NewNop()), rec
}

func names(t *testing.T, seq func(func(db.Member, error) bool)) []string {
	t.Helper()
	var out []string
	for m, err := range seq {
		require.NoError(t, err)
		out = append(out, m.Name)
	}
	return out
}

func TestAddMember(t *testing.T) {
	s, rec := setupService(t)
	ctx := context.Background()

	id, err := s.AddMember(ctx, " Alice ", "a@x.com")
	require.NoError(t, err)

	member, err := s.GetMember(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", member.Name)
	assert.Equal(t, "a@x.com", member.ContactInfo)
	assert.Equal(t, []string{"member.registered"}, rec.Types())
}

func TestAddMemberRequiresName(t *testing.T) {
	s, rec := setupService(t)

	_, err := s.AddMember(context.Background(), "  ", "a@x.com")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, rec.Events())
}

func TestAddMemberAllowsEmptyContact(t *testing.T) {
	s, _ := setupService(t)

	_, err := s.AddMember(context.Background(), "Bob", "")
	assert.NoError(t, err)
}

func TestGetMemberNotFound(t *testing.T) {
	s, _ := setupService(t)

	_, err := s.GetMember(context.Background(), 12)
	assert.ErrorIs(t, err, apperr.ErrMemberNotFound)
}

func TestSearchAndListMembers(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	for _, m := range [][2]string{{"Alice", "a@x.com"}, {"Bob", "b@y.org"}, {"Carol", "a@x.com"}} {
		_, err := s.AddMember(ctx, m[0], m[1])
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names(t, s.ListMembers(ctx)))
	assert.Equal(t, []string{"Alice", "Carol"}, names(t, s.SearchMembers(ctx, "X.COM")))
	assert.Equal(t, []string{"Bob"}, names(t, s.SearchMembers(ctx, "bo")))
	assert.Empty(t, names(t, s.SearchMembers(ctx, "zed")))
}
