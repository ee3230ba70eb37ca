// Package catalog manages the book catalogue: adding, updating, removing and
// searching books while keeping ISBNs unique.
package catalog

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bookstore/services/library/internal/apperr"
	"github.com/bookstore/services/library/internal/db"
	"github.com/bookstore/services/library/internal/events"
	"github.com/bookstore/services/library/internal/metrics"
	"github.com/bookstore/services/library/internal/repo"
)

// Stats summarises the catalogue.
type Stats struct {
	TotalBooks    int64 `json:"total_books"`
	BorrowedBooks int64 `json:"borrowed_books"`
}

// Service is the catalogue manager.
type Service struct {
	db        *db.DB
	books     *repo.CatalogRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewService creates a catalogue manager on database.
func NewService(database *db.DB, publisher events.Publisher, m *metrics.Metrics, log *zap.Logger) *Service {
	return &Service{
		db:        database,
		books:     repo.NewCatalogRepository(database, log),
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

// AddBook registers a new, available book and returns its id.
func (s *Service) AddBook(ctx context.Context, nb NewBook) (uint, error) {
	defer s.metrics.Observe("add_book", time.Now())

	isbn := strings.TrimSpace(nb.ISBN)
	if isbn == "" {
		return 0, apperr.Invalid(FieldISBN, "is required")
	}

	taken, err := s.books.ISBNTaken(ctx, isbn, 0)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, apperr.ErrDuplicateISBN
	}

	book := &db.Book{
		Title:           strings.TrimSpace(nb.Title),
		Author:          strings.TrimSpace(nb.Author),
		ISBN:            isbn,
		PublicationYear: nb.Year,
		Status:          db.StatusAvailable,
	}
	// The unique index still catches a concurrent insert of the same ISBN.
	if err := s.books.CreateBook(ctx, book); err != nil {
		return 0, err
	}

	payload := map[string]interface{}{
		"book_id": book.ID,
		"title":   book.Title,
		"author":  book.Author,
		"isbn":    book.ISBN,
	}
	if book.PublicationYear != nil {
		payload[FieldYear] = *book.PublicationYear
	}
	events.Emit(ctx, s.publisher, s.log, events.EventTypeBookAdded, payload)

	return book.ID, nil
}

// GetBook returns a book by id.
func (s *Service) GetBook(ctx context.Context, id uint) (*db.Book, error) {
	return s.books.GetBook(ctx, id)
}

// ResolveBook finds a book from user input that is either an ISBN or an id.
// An exact ISBN match wins over an id.
func (s *Service) ResolveBook(ctx context.Context, idOrISBN string) (*db.Book, error) {
	key := strings.TrimSpace(idOrISBN)
	if key == "" {
		return nil, apperr.Invalid("book", "id or ISBN is required")
	}

	book, err := s.books.GetBookByISBN(ctx, key)
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, apperr.ErrBookNotFound) {
		return nil, err
	}

	id, perr := strconv.ParseUint(key, 10, 64)
	if perr != nil || id == 0 {
		return nil, apperr.ErrBookNotFound
	}
	return s.books.GetBook(ctx, uint(id))
}

// RemoveBook deletes an available book. Borrowed books cannot be removed.
func (s *Service) RemoveBook(ctx context.Context, id uint) error {
	defer s.metrics.Observe("remove_book", time.Now())

	var removed *db.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := s.books.WithTx(tx)

		book, err := books.GetBookForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if book.Status == db.StatusBorrowed {
			return apperr.ErrBookBorrowed
		}

		deleted, err := books.DeleteAvailableBook(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			// Borrowed between the read and the delete.
			return apperr.ErrBookBorrowed
		}
		removed = book
		return nil
	})
	if err != nil {
		return apperr.Store("remove book", err)
	}

	events.Emit(ctx, s.publisher, s.log, events.EventTypeBookRemoved, map[string]interface{}{
		"book_id": removed.ID,
		"title":   removed.Title,
		"isbn":    removed.ISBN,
	})
	return nil
}

// UpdateBook applies u to a book and returns the names of the fields whose
// value actually changed.
func (s *Service) UpdateBook(ctx context.Context, id uint, u BookUpdate) ([]string, error) {
	defer s.metrics.Observe("update_book", time.Now())

	fields, values, err := u.Mask()
	if err != nil {
		return nil, err
	}

	var changed []string
	updates := make(map[string]interface{})
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := s.books.WithTx(tx)

		current, err := books.GetBookForUpdate(ctx, id)
		if err != nil {
			return err
		}

		for _, field := range fields {
			if !differs(current, field, values[field]) {
				continue
			}
			changed = append(changed, field)
			updates[field] = values[field]
		}
		if len(changed) == 0 {
			return nil
		}

		if isbn, ok := updates[FieldISBN].(string); ok {
			taken, err := books.ISBNTaken(ctx, isbn, id)
			if err != nil {
				return err
			}
			if taken {
				return apperr.ErrDuplicateISBN
			}
		}

		return books.UpdateBook(ctx, id, updates)
	})
	if err != nil {
		return nil, apperr.Store("update book", err)
	}

	if len(changed) > 0 {
		payload := map[string]interface{}{
			"book_id":        id,
			"fields_changed": changed,
		}
		for k, v := range updates {
			payload[k] = v
		}
		events.Emit(ctx, s.publisher, s.log, events.EventTypeBookUpdated, payload)
	}

	return changed, nil
}

func differs(book *db.Book, field string, value interface{}) bool {
	switch field {
	case FieldTitle:
		return book.Title != value.(string)
	case FieldAuthor:
		return book.Author != value.(string)
	case FieldISBN:
		return book.ISBN != value.(string)
	case FieldYear:
		return book.PublicationYear == nil || *book.PublicationYear != value.(int)
	}
	return false
}

// SearchBooks yields the books whose title, author or ISBN contains keyword,
// ignoring case.
func (s *Service) SearchBooks(ctx context.Context, keyword string) iter.Seq2[db.Book, error] {
	return s.books.SearchBooks(ctx, keyword)
}

// ListBooks yields every book.
func (s *Service) ListBooks(ctx context.Context) iter.Seq2[db.Book, error] {
	return s.books.SearchBooks(ctx, "")
}

// Stats counts books in total and out on loan.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, borrowed, err := s.books.GetStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalBooks: total, BorrowedBooks: borrowed}, nil
}
