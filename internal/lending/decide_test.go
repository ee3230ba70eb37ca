package lending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookstore/services/library/internal/apperr"
	"github.com/bookstore/services/library/internal/db"
)

func date(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDecideBorrow(t *testing.T) {
	cmd := borrowCommand{memberID: 1, bookID: 2, today: date("2024-01-01").Add(15 * time.Hour), period: 14}

	tests := []struct {
		name    string
		state   borrowState
		wantErr error
	}{
		{"member missing wins over book missing", borrowState{}, apperr.ErrMemberNotFound},
		{"book missing", borrowState{memberExists: true}, apperr.ErrBookNotFound},
		{"book borrowed", borrowState{memberExists: true, bookExists: true, bookStatus: db.StatusBorrowed}, apperr.ErrAlreadyBorrowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decideBorrow(tt.state, cmd)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	b, err := decideBorrow(borrowState{memberExists: true, bookExists: true, bookStatus: db.StatusAvailable}, cmd)
	require.NoError(t, err)
	assert.Equal(t, uint(1), b.MemberID)
	assert.Equal(t, uint(2), b.BookID)
	assert.Equal(t, "2024-01-01", b.BorrowDate.Format(DateLayout))
	assert.Equal(t, "2024-01-15", b.DueDate.Format(DateLayout))
	assert.True(t, b.Open())
}

func TestDecideBorrowAcrossMonthEnd(t *testing.T) {
	b, err := decideBorrow(
		borrowState{memberExists: true, bookExists: true, bookStatus: db.StatusAvailable},
		borrowCommand{today: date("2024-02-20"), period: 14},
	)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", b.DueDate.Format(DateLayout), "2024 is a leap year")
}

func TestDecideReturn(t *testing.T) {
	open := &db.Borrowing{BorrowDate: date("2024-01-01"), DueDate: date("2024-01-15")}

	_, err := decideReturn(nil, date("2024-01-10"))
	assert.ErrorIs(t, err, apperr.ErrNoOpenBorrowing)

	returned := date("2024-01-02")
	_, err = decideReturn(&db.Borrowing{ReturnDate: &returned}, date("2024-01-10"))
	assert.ErrorIs(t, err, apperr.ErrNoOpenBorrowing)

	d, err := decideReturn(open, date("2024-01-15"))
	require.NoError(t, err)
	assert.Nil(t, d.late, "returning on the due date is on time")

	d, err = decideReturn(open, date("2024-01-20").Add(23*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, d.late)
	assert.Equal(t, 5, d.late.DaysLate)
	assert.Equal(t, "2024-01-20", d.returnDate.Format(DateLayout))

	d, err = decideReturn(open, date("2023-12-31"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", d.returnDate.Format(DateLayout), "never before the borrow date")
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	local := time.Date(2024, 1, 2, 1, 30, 0, 0, loc)

	d := Day(local)
	assert.Equal(t, time.UTC, d.Location())
	assert.Equal(t, "2024-01-02", d.Format(DateLayout), "the local calendar day is kept")
	assert.Zero(t, d.Hour())

	assert.Equal(t, 31, daysBetween(date("2024-01-01"), date("2024-02-01")))
	assert.Equal(t, -1, daysBetween(date("2024-01-02"), date("2024-01-01")))
}
