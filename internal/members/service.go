// Package members is the member registry.
package members

import (
	"context"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bookstore/services/library/internal/apperr"
	"github.com/bookstore/services/library/internal/db"
	"github.com/bookstore/services/library/internal/events"
	"github.com/bookstore/services/library/internal/metrics"
	"github.com/bookstore/services/library/internal/repo"
)

// Service registers and looks up members.
type Service struct {
	members   *repo.MemberRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewService creates a member registry on database.
func NewService(database *db.DB, publisher events.Publisher, m *metrics.Metrics, log *zap.Logger) *Service {
	return &Service{
		members:   repo.NewMemberRepository(database, log),
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

// AddMember registers a member and returns the new id. Contact info is free
// text and may be shared between members.
func (s *Service) AddMember(ctx context.Context, name, contactInfo string) (uint, error) {
	defer s.metrics.Observe("add_member", time.Now())

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, apperr.Invalid("name", "is required")
	}

	member := &db.Member{Name: name, ContactInfo: strings.TrimSpace(contactInfo)}
	if err := s.members.CreateMember(ctx, member); err != nil {
		return 0, err
	}

	events.Emit(ctx, s.publisher, s.log, events.EventTypeMemberRegistered, map[string]interface{}{
		"member_id": member.ID,
		"name":      member.Name,
	})
	return member.ID, nil
}

// GetMember returns a member by id.
func (s *Service) GetMember(ctx context.Context, id uint) (*db.Member, error) {
	return s.members.GetMember(ctx, id)
}

// SearchMembers yields members whose name or contact info contains keyword.
func (s *Service) SearchMembers(ctx context.Context, keyword string) iter.Seq2[db.Member, error] {
	return s.members.SearchMembers(ctx, keyword)
}

// ListMembers yields every member.
func (s *Service) ListMembers(ctx context.Context) iter.Seq2[db.Member, error] {
	return s.members.SearchMembers(ctx, "")
}
