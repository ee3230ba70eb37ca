package repo

import (
	"context"
	"errors"
	"iter"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bookstore/services/library/internal/apperr"
	"github.com/bookstore/services/library/internal/db"
)

// MemberRepository handles member records
type MemberRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(database *db.DB, logger *zap.Logger) *MemberRepository {
	return &MemberRepository{db: database, log: logger}
}

// WithTx returns a repository bound to an open transaction.
func (r *MemberRepository) WithTx(tx *gorm.DB) *MemberRepository {
	return &MemberRepository{db: &db.DB{DB: tx}, log: r.log}
}

// CreateMember inserts a member.
func (r *MemberRepository) CreateMember(ctx context.Context, member *db.Member) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		r.log.Error("Failed to create member", zap.String("name", member.Name), zap.Error(err))
		return apperr.Store("create member", err)
	}

	r.log.Info("Member created", zap.Uint("member_id", member.ID), zap.String("name", member.Name))
	return nil
}

// GetMember retrieves a member by id
func (r *MemberRepository) GetMember(ctx context.Context, id uint) (*db.Member, error) {
	var member db.Member
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrMemberNotFound
		}
		r.log.Error("Failed to get member", zap.Uint("member_id", id), zap.Error(err))
		return nil, apperr.Store("get member", err)
	}
	return &member, nil
}

// SearchMembers yields members whose name or contact info contains keyword,
// ignoring case. An empty keyword yields every member.
func (r *MemberRepository) SearchMembers(ctx context.Context, keyword string) iter.Seq2[db.Member, error] {
	return func(yield func(db.Member, error) bool) {
		q := r.db.WithContext(ctx).Model(&db.Member{})
		if pattern, ok := likePattern(keyword); ok {
			q = q.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(contact_info) LIKE ? ESCAPE '\\'", pattern, pattern)
		}

		rows, err := q.Order("id").Rows()
		if err != nil {
			r.log.Error("Failed to search members", zap.String("keyword", keyword), zap.Error(err))
			yield(db.Member{}, apperr.Store("search members", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var member db.Member
			if err := r.db.ScanRows(rows, &member); err != nil {
				yield(db.Member{}, apperr.Store("scan member", err))
				return
			}
			if !yield(member, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(db.Member{}, apperr.Store("search members", err))
		}
	}
}
