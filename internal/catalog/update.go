package catalog

import (
	"strings"

	"github.com/bookstore/services/library/internal/apperr"
)

// NewBook is the input of AddBook.
type NewBook struct {
	Title  string
	Author string
	ISBN   string
	Year   *int
}

// BookUpdate names the fields to change. A nil field is left as is. Status
// is not part of it; only lending moves a book between states.
type BookUpdate struct {
	Title  *string
	Author *string
	ISBN   *string
	Year   *int
}

// Column names, also used as field names in events and responses.
const (
	FieldTitle  = "title"
	FieldAuthor = "author"
	FieldISBN   = "isbn"
	FieldYear   = "publication_year"
)

// Mask validates u and returns the fields it sets, in a fixed order, together
// with their column values. Set text fields must not be blank.
func (u BookUpdate) Mask() ([]string, map[string]interface{}, error) {
	var fields []string
	values := make(map[string]interface{})

	text := []struct {
		field string
		value *string
	}{
		{FieldTitle, u.Title},
		{FieldAuthor, u.Author},
		{FieldISBN, u.ISBN},
	}
	for _, t := range text {
		if t.value == nil {
			continue
		}
		v := strings.TrimSpace(*t.value)
		if v == "" {
			return nil, nil, apperr.Invalid(t.field, "must not be empty")
		}
		fields = append(fields, t.field)
		values[t.field] = v
	}

	if u.Year != nil {
		fields = append(fields, FieldYear)
		values[FieldYear] = *u.Year
	}

	return fields, values, nil
}

// Empty reports whether u sets nothing.
func (u BookUpdate) Empty() bool {
	return u.Title == nil && u.Author == nil && u.ISBN == nil && u.Year == nil
}
