package repo

import (
	"context"
	"errors"
	"iter"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bookstore/services/library/internal/apperr"
	"github.com/bookstore/services/library/internal/db"
)

// OpenBorrowing is a book currently on loan to a member, joined with its
// catalogue data.
type OpenBorrowing struct {
	BorrowingID uint      `json:"borrowing_id"`
	BookID      uint      `json:"book_id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	BorrowDate  time.Time `json:"borrow_date"`
	DueDate     time.Time `json:"due_date"`
}

// BorrowingRepository handles borrowing records
type BorrowingRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewBorrowingRepository creates a new borrowing repository
func NewBorrowingRepository(database *db.DB, logger *zap.Logger) *BorrowingRepository {
	return &BorrowingRepository{db: database, log: logger}
}

// WithTx returns a repository bound to an open transaction.
func (r *BorrowingRepository) WithTx(tx *gorm.DB) *BorrowingRepository {
	return &BorrowingRepository{db: &db.DB{DB: tx}, log: r.log}
}

// CreateBorrowing inserts an open borrowing. A second open borrowing for the
// same book violates idx_borrowings_open_book.
func (r *BorrowingRepository) CreateBorrowing(ctx context.Context, borrowing *db.Borrowing) error {
	if err := r.db.WithContext(ctx).Create(borrowing).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrAlreadyBorrowed
		}
		r.log.Error("Failed to create borrowing",
			zap.Uint("book_id", borrowing.BookID),
			zap.Uint("member_id", borrowing.MemberID),
			zap.Error(err),
		)
		return apperr.Store("create borrowing", err)
	}
	return nil
}

// GetOpenBorrowingForUpdate returns the open borrowing of a book and locks it.
func (r *BorrowingRepository) GetOpenBorrowingForUpdate(ctx context.Context, bookID uint) (*db.Borrowing, error) {
	var borrowing db.Borrowing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("book_id = ? AND return_date IS NULL", bookID).
		First(&borrowing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNoOpenBorrowing
		}
		r.log.Error("Failed to get open borrowing", zap.Uint("book_id", bookID), zap.Error(err))
		return nil, apperr.Store("get open borrowing", err)
	}
	return &borrowing, nil
}

// CloseBorrowing sets the return date of an open borrowing. It reports false
// when the borrowing was already closed.
func (r *BorrowingRepository) CloseBorrowing(ctx context.Context, id uint, returnDate time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&db.Borrowing{}).
		Where("id = ? AND return_date IS NULL", id).
		Update("return_date", returnDate)
	if result.Error != nil {
		r.log.Error("Failed to close borrowing", zap.Uint("borrowing_id", id), zap.Error(result.Error))
		return false, apperr.Store("close borrowing", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ListBorrowingsForBook returns the full loan history of a book, oldest first.
func (r *BorrowingRepository) ListBorrowingsForBook(ctx context.Context, bookID uint) ([]db.Borrowing, error) {
	var borrowings []db.Borrowing
	if err := r.db.WithContext(ctx).Where("book_id = ?", bookID).Order("id").Find(&borrowings).Error; err != nil {
		return nil, apperr.Store("list borrowings", err)
	}
	return borrowings, nil
}

// CountOpen returns the number of open borrowings.
func (r *BorrowingRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&db.Borrowing{}).Where("return_date IS NULL").Count(&count).Error; err != nil {
		return 0, apperr.Store("count open borrowings", err)
	}
	return count, nil
}

// OpenBorrowingsForMember yields the books a member currently has on loan,
// ordered by borrow date. Each iteration runs a fresh query.
func (r *BorrowingRepository) OpenBorrowingsForMember(ctx context.Context, memberID uint) iter.Seq2[OpenBorrowing, error] {
	return func(yield func(OpenBorrowing, error) bool) {
		rows, err := r.db.WithContext(ctx).
			Table("borrowings").
			Select("borrowings.id AS borrowing_id, borrowings.book_id, books.title, books.author, borrowings.borrow_date, borrowings.due_date").
			Joins("JOIN books ON books.id = borrowings.book_id").
			Where("borrowings.member_id = ? AND borrowings.return_date IS NULL", memberID).
			Order("borrowings.borrow_date, borrowings.id").
			Rows()
		if err != nil {
			r.log.Error("Failed to list open borrowings", zap.Uint("member_id", memberID), zap.Error(err))
			yield(OpenBorrowing{}, apperr.Store("list open borrowings", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var ob OpenBorrowing
			if err := r.db.ScanRows(rows, &ob); err != nil {
				yield(OpenBorrowing{}, apperr.Store("scan open borrowing", err))
				return
			}
			if !yield(ob, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(OpenBorrowing{}, apperr.Store("list open borrowings", err))
		}
	}
}
