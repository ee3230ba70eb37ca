package repo

import (
	"context"
	"errors"
	"iter"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bookstore/services/library/internal/apperr"
	"github.com/bookstore/services/library/internal/db"
)

// CatalogRepository handles book records
type CatalogRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(database *db.DB, logger *zap.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:  database,
		log: logger,
	}
}

// WithTx returns a repository bound to an open transaction.
func (r *CatalogRepository) WithTx(tx *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: &db.DB{DB: tx}, log: r.log}
}

// GetBook retrieves a book by id
func (r *CatalogRepository) GetBook(ctx context.Context, id uint) (*db.Book, error) {
	return r.first(ctx, r.db.WithContext(ctx), "id = ?", id)
}

// GetBookForUpdate retrieves a book by id and locks its row until the
// surrounding transaction ends.
func (r *CatalogRepository) GetBookForUpdate(ctx context.Context, id uint) (*db.Book, error) {
	q := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	return r.first(ctx, q, "id = ?", id)
}

// GetBookByISBN retrieves a book by its ISBN
func (r *CatalogRepository) GetBookByISBN(ctx context.Context, isbn string) (*db.Book, error) {
	return r.first(ctx, r.db.WithContext(ctx), "isbn = ?", isbn)
}

func (r *CatalogRepository) first(ctx context.Context, q *gorm.DB, cond string, arg any) (*db.Book, error) {
	var book db.Book
	err := q.Where(cond, arg).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrBookNotFound
		}
		r.log.Error("Failed to get book", zap.Any("key", arg), zap.Error(err))
		return nil, apperr.Store("get book", err)
	}

	return &book, nil
}

// ISBNTaken reports whether isbn belongs to a book other than excludeID.
// Pass 0 to check against every book.
func (r *CatalogRepository) ISBNTaken(ctx context.Context, isbn string, excludeID uint) (bool, error) {
	q := r.db.WithContext(ctx).Model(&db.Book{}).Where("isbn = ?", isbn)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		r.log.Error("Failed to check ISBN", zap.String("isbn", isbn), zap.Error(err))
		return false, apperr.Store("check isbn", err)
	}
	return count > 0, nil
}

// CreateBook inserts a new book. The ISBN unique index is the final arbiter
// of uniqueness.
func (r *CatalogRepository) CreateBook(ctx context.Context, book *db.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrDuplicateISBN
		}
		r.log.Error("Failed to create book", zap.String("isbn", book.ISBN), zap.Error(err))
		return apperr.Store("create book", err)
	}

	r.log.Info("Book created", zap.Uint("book_id", book.ID), zap.String("isbn", book.ISBN), zap.String("title", book.Title))
	return nil
}

// UpdateBook applies a validated column->value map to one book.
func (r *CatalogRepository) UpdateBook(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&db.Book{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return apperr.ErrDuplicateISBN
		}
		r.log.Error("Failed to update book", zap.Uint("book_id", id), zap.Error(result.Error))
		return apperr.Store("update book", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperr.ErrBookNotFound
	}

	return nil
}

// TransitionStatus moves a book from one status to another. It reports false
// when the book is not currently in the from state.
func (r *CatalogRepository) TransitionStatus(ctx context.Context, id uint, from, to db.BookStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&db.Book{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		r.log.Error("Failed to change book status",
			zap.Uint("book_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(result.Error),
		)
		return false, apperr.Store("update book status", result.Error)
	}

	return result.RowsAffected == 1, nil
}

// DeleteAvailableBook hard deletes a book, but only while it is Available.
// It reports whether a row was removed.
func (r *CatalogRepository) DeleteAvailableBook(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, db.StatusAvailable).
		Delete(&db.Book{})
	if result.Error != nil {
		r.log.Error("Failed to delete book", zap.Uint("book_id", id), zap.Error(result.Error))
		return false, apperr.Store("delete book", result.Error)
	}

	if result.RowsAffected == 1 {
		r.log.Info("Book deleted", zap.Uint("book_id", id))
	}
	return result.RowsAffected == 1, nil
}

// SearchBooks yields books whose title, author or ISBN contains keyword,
// ignoring case. An empty keyword yields every book. Each iteration runs a
// fresh query.
func (r *CatalogRepository) SearchBooks(ctx context.Context, keyword string) iter.Seq2[db.Book, error] {
	return func(yield func(db.Book, error) bool) {
		q := r.db.WithContext(ctx).Model(&db.Book{})
		if pattern, ok := likePattern(keyword); ok {
			q = q.Where(
				"LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(author) LIKE ? ESCAPE '\\' OR LOWER(isbn) LIKE ? ESCAPE '\\'",
				pattern, pattern, pattern,
			)
		}

		rows, err := q.Order("id").Rows()
		if err != nil {
			r.log.Error("Failed to search books", zap.String("keyword", keyword), zap.Error(err))
			yield(db.Book{}, apperr.Store("search books", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var book db.Book
			if err := r.db.ScanRows(rows, &book); err != nil {
				yield(db.Book{}, apperr.Store("scan book", err))
				return
			}
			if !yield(book, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(db.Book{}, apperr.Store("search books", err))
		}
	}
}

// GetStats returns catalogue counts for metrics
func (r *CatalogRepository) GetStats(ctx context.Context) (total, borrowed int64, err error) {
	if err := r.db.WithContext(ctx).Model(&db.Book{}).Count(&total).Error; err != nil {
		return 0, 0, apperr.Store("count books", err)
	}

	if err := r.db.WithContext(ctx).Model(&db.Book{}).Where("status = ?", db.StatusBorrowed).Count(&borrowed).Error; err != nil {
		return 0, 0, apperr.Store("count borrowed books", err)
	}

	return total, borrowed, nil
}
