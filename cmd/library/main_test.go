package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookstore/services/library/internal/apperr"
)

type cli struct {
	t      *testing.T
	dbPath string
}

func newCLI(t *testing.T) *cli {
	t.Setenv("PG_DSN", "")
	return &cli{t: t, dbPath: filepath.Join(t.TempDir(), "library.db")}
}

// run executes one command against the shared database file.
func (c *cli) run(stdin string, args ...string) (string, string, int) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"--db", c.dbPath}, args...)
	code := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), code
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	out, errOut, code := c.run("", args...)
	require.Equal(c.t, exitOK, code, "stderr: %s", errOut)
	return out
}

func TestLendingSession(t *testing.T) {
	c := newCLI(t)

	out := c.ok("book", "add", "--title", "Dune", "--author", "Frank Herbert", "--isbn", "111", "--year", "1965")
	assert.Contains(t, out, "Book 'Dune' added successfully with ID: 1")

	_, errOut, code := c.run("", "book", "add", "--title", "Other", "--author", "X", "--isbn", "111")
	assert.Equal(t, exitConflict, code)
	assert.Contains(t, errOut, "ISBN already exists")

	out = c.ok("member", "add", "--name", "Alice", "--contact", "alice@example.com")
	assert.Contains(t, out, "Member 'Alice' added successfully with ID: 1!")

	out = c.ok("borrow", "1", "1", "--today", "2024-01-01")
	assert.Contains(t, out, "Book 'Dune' (ID: 1) successfully borrowed by Alice (ID: 1).")
	assert.Contains(t, out, "Due date: 2024-01-15")

	_, errOut, code = c.run("", "borrow", "1", "1")
	assert.Equal(t, exitConflict, code)
	assert.Contains(t, errOut, "already borrowed")

	out = c.ok("borrowed", "1")
	assert.Contains(t, out, "--- Books borrowed by Alice (ID: 1) ---")
	assert.Contains(t, out, "Book ID: 1, Title: Dune, Author: Frank Herbert, Borrow Date: 2024-01-01, Due Date: 2024-01-15")

	out = c.ok("book", "remove", "111", "--yes")
	assert.Contains(t, out, "Cannot remove 'Dune'. It is currently borrowed.")

	out = c.ok("book", "list")
	assert.Contains(t, out, "ID: 1, Title: Dune, Author: Frank Herbert, ISBN: 111, Year: 1965, Status: Borrowed")

	out = c.ok("return", "1", "--today", "2024-01-20")
	assert.Contains(t, out, "ALERT: This book is 5 day(s) late!")
	assert.Contains(t, out, "Book 'Dune' (ID: 1) returned successfully by Alice.")

	_, _, code = c.run("", "return", "1")
	assert.Equal(t, exitConflict, code)

	out = c.ok("borrowed", "1")
	assert.Contains(t, out, "No books currently borrowed by Alice.")

	out = c.ok("stats")
	assert.Contains(t, out, "Books: 1, Borrowed: 0, Available: 1")
}

func TestOnTimeReturnHasNoAlert(t *testing.T) {
	c := newCLI(t)
	c.ok("book", "add", "--title", "Dune", "--author", "Frank Herbert", "--isbn", "111")
	c.ok("member", "add", "--name", "Alice")
	c.ok("borrow", "1", "1", "--today", "2024-01-01", "--period", "7")

	out := c.ok("return", "1", "--today", "2024-01-08")
	assert.NotContains(t, out, "ALERT")
	assert.Contains(t, out, "returned successfully")
}

func TestBookRemoveConfirmation(t *testing.T) {
	c := newCLI(t)
	c.ok("book", "add", "--title", "Dune", "--author", "Frank Herbert", "--isbn", "111")

	out, _, code := c.run("no\n", "book", "remove", "1")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Are you sure you want to remove 'Dune' (Book ID: 1)? (yes/no): ")
	assert.Contains(t, out, "Book removal cancelled.")

	out, _, code = c.run("", "book", "remove", "1")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Book removal cancelled.", "no answer means no")

	out, _, code = c.run("YES\n", "book", "remove", "111")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Book 'Dune' removed successfully!")

	out = c.ok("book", "list")
	assert.Contains(t, out, "No books in the library.")

	_, _, code = c.run("", "book", "remove", "111", "--yes")
	assert.Equal(t, exitNotFound, code)
}

func TestBookUpdateAndSearch(t *testing.T) {
	c := newCLI(t)
	c.ok("book", "add", "--title", "Dune", "--author", "Frank Herbert", "--isbn", "111")
	c.ok("book", "add", "--title", "Emma", "--author", "Jane Austen", "--isbn", "222")

	out := c.ok("book", "update", "1", "--title", "Dune Messiah", "--author", "Frank Herbert", "--year", "1969")
	assert.Contains(t, out, "Changed: title, publication_year")

	out = c.ok("book", "update", "1", "--title", "Dune Messiah")
	assert.Contains(t, out, "No changes made to the book.")

	_, _, code := c.run("", "book", "update", "1", "--isbn", "222")
	assert.Equal(t, exitConflict, code)

	_, errOut, code := c.run("", "book", "update", "1", "--title", "  ")
	assert.Equal(t, exitInvalid, code)
	assert.Contains(t, errOut, "invalid title")

	_, _, code = c.run("", "book", "update", "9", "--title", "x")
	assert.Equal(t, exitNotFound, code)

	out = c.ok("book", "search", "messiah")
	assert.Contains(t, out, "--- Search Results ---")
	assert.Contains(t, out, "Title: Dune Messiah")
	assert.Contains(t, out, "Year: 1969")
	assert.NotContains(t, out, "Emma")

	out = c.ok("book", "search", "tolkien")
	assert.Contains(t, out, "No books found matching your search.")
}

func TestMemberSearch(t *testing.T) {
	c := newCLI(t)
	c.ok("member", "add", "--name", "Alice", "--contact", "alice@example.com")
	c.ok("member", "add", "--name", "Bob", "--contact", "555-0100")

	out := c.ok("member", "search", "555")
	assert.Contains(t, out, "ID: 2, Name: Bob, Contact: 555-0100")
	assert.NotContains(t, out, "Alice")

	out = c.ok("member", "search")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "Bob")

	out = c.ok("member", "search", "carol")
	assert.Contains(t, out, "No members found matching your search.")

	_, _, code := c.run("", "member", "add", "--name", " ")
	assert.Equal(t, exitInvalid, code)
}

func TestLendingErrors(t *testing.T) {
	c := newCLI(t)
	c.ok("book", "add", "--title", "Dune", "--author", "Frank Herbert", "--isbn", "111")

	_, errOut, code := c.run("", "borrow", "7", "1")
	assert.Equal(t, exitNotFound, code)
	assert.Contains(t, errOut, "member not found")

	_, _, code = c.run("", "borrowed", "7")
	assert.Equal(t, exitNotFound, code)

	_, errOut, code = c.run("", "return", "abc")
	assert.Equal(t, exitInvalid, code)
	assert.Contains(t, errOut, "invalid book: must be a positive number")

	_, _, code = c.run("", "return", "1")
	assert.Equal(t, exitConflict, code)

	_, _, code = c.run("", "borrow", "1", "1", "--today", "yesterday")
	assert.Equal(t, exitInvalid, code)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{apperr.Invalid("name", "is required"), exitInvalid},
		{apperr.ErrBookNotFound, exitNotFound},
		{apperr.ErrMemberNotFound, exitNotFound},
		{apperr.ErrDuplicateISBN, exitConflict},
		{apperr.ErrBookBorrowed, exitConflict},
		{apperr.ErrAlreadyBorrowed, exitConflict},
		{apperr.ErrNoOpenBorrowing, exitConflict},
		{apperr.Store("op", assert.AnError), exitStore},
		{assert.AnError, exitFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}
