package lending

import (
	"time"

	"github.com/bookstore/services/library/internal/apperr"
	"github.com/bookstore/services/library/internal/db"
)

// borrowState is what the store knows about a borrow request.
type borrowState struct {
	memberExists bool
	bookExists   bool
	bookStatus   db.BookStatus
}

type borrowCommand struct {
	memberID uint
	bookID   uint
	today    time.Time
	period   int
}

// decideBorrow applies the lending rules to a borrow request and returns the
// borrowing to open.
//
//	ERROR: member not found if the member is not registered
//	ERROR: book not found if the book is not catalogued
//	ERROR: already borrowed if the book is out on loan
func decideBorrow(s borrowState, cmd borrowCommand) (db.Borrowing, error) {
	switch {
	case !s.memberExists:
		return db.Borrowing{}, apperr.ErrMemberNotFound
	case !s.bookExists:
		return db.Borrowing{}, apperr.ErrBookNotFound
	case s.bookStatus != db.StatusAvailable:
		return db.Borrowing{}, apperr.ErrAlreadyBorrowed
	}

	borrowDate := Day(cmd.today)
	return db.Borrowing{
		BookID:     cmd.bookID,
		MemberID:   cmd.memberID,
		BorrowDate: borrowDate,
		DueDate:    borrowDate.AddDate(0, 0, cmd.period),
	}, nil
}

// returnDecision is the outcome of closing a borrowing.
type returnDecision struct {
	returnDate time.Time
	late       *LateReturn
}

// decideReturn closes the open borrowing of a book, if there is one. The
// return date never precedes the borrow date.
func decideReturn(open *db.Borrowing, today time.Time) (returnDecision, error) {
	if open == nil || !open.Open() {
		return returnDecision{}, apperr.ErrNoOpenBorrowing
	}

	returnDate := Day(today)
	if borrowDate := Day(open.BorrowDate); returnDate.Before(borrowDate) {
		returnDate = borrowDate
	}

	d := returnDecision{returnDate: returnDate}
	if late := daysBetween(open.DueDate, returnDate); late > 0 {
		d.late = &LateReturn{DaysLate: late}
	}
	return d, nil
}
