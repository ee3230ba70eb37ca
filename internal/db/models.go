package db

import (
	"time"

	"gorm.io/gorm"
)

// BookStatus is the lending state of a book.
type BookStatus string

const (
	StatusAvailable BookStatus = "Available"
	StatusBorrowed  BookStatus = "Borrowed"
)

// Valid reports whether s is one of the known states.
func (s BookStatus) Valid() bool {
	return s == StatusAvailable || s == StatusBorrowed
}

// Book represents a catalogue entry
type Book struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"type:varchar(255);not null;index:idx_books_title" json:"title"`
	Author          string     `gorm:"type:varchar(255);not null;index:idx_books_author" json:"author"`
	ISBN            string     `gorm:"column:isbn;type:varchar(32);not null;uniqueIndex:idx_books_isbn" json:"isbn"`
	PublicationYear *int       `gorm:"column:publication_year" json:"publication_year,omitempty"`
	Status          BookStatus `gorm:"type:varchar(16);not null;default:'Available';index:idx_books_status" json:"status"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for Book model
func (Book) TableName() string {
	return "books"
}

// BeforeCreate defaults the status of new books.
func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.Status == "" {
		b.Status = StatusAvailable
	}
	return nil
}

// Member represents a registered library member
type Member struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null;index:idx_members_name" json:"name"`
	ContactInfo string    `gorm:"column:contact_info;type:varchar(255)" json:"contact_info"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for Member model
func (Member) TableName() string {
	return "members"
}

// Borrowing records one loan of a book to a member. The row is append-only
// except for ReturnDate, which is set once when the loan closes.
type Borrowing struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	BookID     uint       `gorm:"not null;index:idx_borrowings_book" json:"book_id"`
	MemberID   uint       `gorm:"not null;index:idx_borrowings_member" json:"member_id"`
	BorrowDate time.Time  `gorm:"type:date;not null" json:"borrow_date"`
	DueDate    time.Time  `gorm:"type:date;not null" json:"due_date"`
	ReturnDate *time.Time `gorm:"type:date" json:"return_date,omitempty"`
}

// TableName specifies the table name for Borrowing model
func (Borrowing) TableName() string {
	return "borrowings"
}

// Open reports whether the borrowing has not been returned yet.
func (b *Borrowing) Open() bool {
	return b.ReturnDate == nil
}
