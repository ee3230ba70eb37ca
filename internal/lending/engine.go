// Package lending runs the borrow and return state machine of books.
//
// A book is Available until it is borrowed and Borrowed until it is returned.
// Each transition writes the borrowing record and the book status in one
// transaction, under a per-book lock.
package lending

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bookstore/services/library/internal/apperr"
	"github.com/bookstore/services/library/internal/db"
	"github.com/bookstore/services/library/internal/events"
	"github.com/bookstore/services/library/internal/lock"
	"github.com/bookstore/services/library/internal/metrics"
	"github.com/bookstore/services/library/internal/repo"
)

// DefaultBorrowingPeriod is the loan length in days.
const DefaultBorrowingPeriod = 14

// BorrowResult describes a new loan.
type BorrowResult struct {
	Borrowing  db.Borrowing `json:"borrowing"`
	BookTitle  string       `json:"book_title"`
	MemberName string       `json:"member_name"`
}

// LateReturn flags a book returned after its due date.
type LateReturn struct {
	DaysLate int `json:"days_late"`
}

// ReturnResult describes a closed loan.
type ReturnResult struct {
	Borrowing  db.Borrowing `json:"borrowing"`
	BookTitle  string       `json:"book_title"`
	MemberName string       `json:"member_name"`
	Late       *LateReturn  `json:"late,omitempty"`
}

// Engine is the lending engine.
type Engine struct {
	db         *db.DB
	books      *repo.CatalogRepository
	members    *repo.MemberRepository
	borrowings *repo.BorrowingRepository
	locker     lock.Locker
	publisher  events.Publisher
	metrics    *metrics.Metrics
	log        *zap.Logger
	clock      Clock
	period     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the source of "today".
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithBorrowingPeriod sets the loan length in days. Non-positive values are
// ignored.
func WithBorrowingPeriod(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.period = days
		}
	}
}

// WithLocker replaces the in-process per-book lock.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// NewEngine creates a lending engine on database.
func NewEngine(database *db.DB, publisher events.Publisher, m *metrics.Metrics, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		db:         database,
		books:      repo.NewCatalogRepository(database, log),
		members:    repo.NewMemberRepository(database, log),
		borrowings: repo.NewBorrowingRepository(database, log),
		locker:     lock.NewKeyedMutex(),
		publisher:  publisher,
		metrics:    m,
		log:        log,
		clock:      time.Now,
		period:     DefaultBorrowingPeriod,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Period returns the loan length in days.
func (e *Engine) Period() int {
	return e.period
}

// Borrow lends a book to a member. The borrowing insert and the status flip
// commit together or not at all.
func (e *Engine) Borrow(ctx context.Context, memberID, bookID uint) (result *BorrowResult, err error) {
	defer e.metrics.Observe("borrow", time.Now())
	defer func() {
		e.metrics.Borrows.WithLabelValues(metrics.Outcome(err, apperr.IsDomain)).Inc()
	}()

	unlock, err := e.locker.Lock(ctx, lock.BookKey(bookID))
	if err != nil {
		return nil, apperr.Store("lock book", err)
	}
	defer unlock()

	cmd := borrowCommand{memberID: memberID, bookID: bookID, today: e.clock(), period: e.period}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := e.books.WithTx(tx)
		borrowings := e.borrowings.WithTx(tx)

		var state borrowState
		member, err := e.members.WithTx(tx).GetMember(ctx, memberID)
		switch {
		case err == nil:
			state.memberExists = true
		case !errors.Is(err, apperr.ErrMemberNotFound):
			return err
		}

		book, err := books.GetBookForUpdate(ctx, bookID)
		switch {
		case err == nil:
			state.bookExists = true
			state.bookStatus = book.Status
		case !errors.Is(err, apperr.ErrBookNotFound):
			return err
		}

		borrowing, err := decideBorrow(state, cmd)
		if err != nil {
			return err
		}

		if err := borrowings.CreateBorrowing(ctx, &borrowing); err != nil {
			return err
		}

		flipped, err := books.TransitionStatus(ctx, bookID, db.StatusAvailable, db.StatusBorrowed)
		if err != nil {
			return err
		}
		if !flipped {
			return apperr.ErrAlreadyBorrowed
		}

		result = &BorrowResult{
			Borrowing:  borrowing,
			BookTitle:  book.Title,
			MemberName: member.Name,
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Store("borrow book", err)
	}

	e.log.Info("Book borrowed",
		zap.Uint("book_id", bookID),
		zap.Uint("member_id", memberID),
		zap.String("due_date", result.Borrowing.DueDate.Format(DateLayout)),
	)
	events.Emit(ctx, e.publisher, e.log, events.EventTypeBookBorrowed, map[string]interface{}{
		"borrowing_id": result.Borrowing.ID,
		"book_id":      bookID,
		"member_id":    memberID,
		"borrow_date":  result.Borrowing.BorrowDate.Format(DateLayout),
		"due_date":     result.Borrowing.DueDate.Format(DateLayout),
	})

	return result, nil
}

// Return closes the open borrowing of a book and makes it available again.
// A late return is reported in the result, not as an error.
func (e *Engine) Return(ctx context.Context, bookID uint) (result *ReturnResult, err error) {
	defer e.metrics.Observe("return", time.Now())
	defer func() {
		e.metrics.Returns.WithLabelValues(metrics.Outcome(err, apperr.IsDomain)).Inc()
		if err == nil && result.Late != nil {
			e.metrics.LateReturns.Inc()
		}
	}()

	unlock, err := e.locker.Lock(ctx, lock.BookKey(bookID))
	if err != nil {
		return nil, apperr.Store("lock book", err)
	}
	defer unlock()

	today := e.clock()

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := e.books.WithTx(tx)
		borrowings := e.borrowings.WithTx(tx)

		open, err := borrowings.GetOpenBorrowingForUpdate(ctx, bookID)
		if err != nil && !errors.Is(err, apperr.ErrNoOpenBorrowing) {
			return err
		}

		decision, err := decideReturn(open, today)
		if err != nil {
			return err
		}

		closed, err := borrowings.CloseBorrowing(ctx, open.ID, decision.returnDate)
		if err != nil {
			return err
		}
		if !closed {
			return apperr.ErrNoOpenBorrowing
		}

		flipped, err := books.TransitionStatus(ctx, bookID, db.StatusBorrowed, db.StatusAvailable)
		if err != nil {
			return err
		}
		if !flipped {
			return fmt.Errorf("book %d has an open borrowing but is not marked borrowed", bookID)
		}

		book, err := books.GetBook(ctx, bookID)
		if err != nil {
			return err
		}
		member, err := e.members.WithTx(tx).GetMember(ctx, open.MemberID)
		if err != nil {
			return err
		}

		returned := *open
		returned.ReturnDate = &decision.returnDate
		result = &ReturnResult{
			Borrowing:  returned,
			BookTitle:  book.Title,
			MemberName: member.Name,
			Late:       decision.late,
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Store("return book", err)
	}

	daysLate := 0
	if result.Late != nil {
		daysLate = result.Late.DaysLate
		e.log.Info("Book returned late", zap.Uint("book_id", bookID), zap.Int("days_late", daysLate))
	}
	events.Emit(ctx, e.publisher, e.log, events.EventTypeBookReturned, map[string]interface{}{
		"borrowing_id": result.Borrowing.ID,
		"book_id":      bookID,
		"member_id":    result.Borrowing.MemberID,
		"return_date":  result.Borrowing.ReturnDate.Format(DateLayout),
		"days_late":    daysLate,
	})

	return result, nil
}

// ListOpenBorrowingsForMember yields the books a member has on loan. The
// member is checked before the sequence is returned.
func (e *Engine) ListOpenBorrowingsForMember(ctx context.Context, memberID uint) (iter.Seq2[repo.OpenBorrowing, error], error) {
	if _, err := e.members.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	return e.borrowings.OpenBorrowingsForMember(ctx, memberID), nil
}

// OpenBorrowings counts books currently out on loan.
func (e *Engine) OpenBorrowings(ctx context.Context) (int64, error) {
	return e.borrowings.CountOpen(ctx)
}
