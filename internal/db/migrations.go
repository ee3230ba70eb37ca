package db

import (
	"gorm.io/gorm"
)

// RunMigrations runs all database migrations
func RunMigrations(db *DB) error {
	if err := db.AutoMigrate(&Book{}, &Member{}, &Borrowing{}); err != nil {
		return err
	}

	if err := createIndexes(db.DB); err != nil {
		return err
	}

	return nil
}

func createIndexes(db *gorm.DB) error {
	// Both PostgreSQL and SQLite support partial indexes.
	indexes := []string{
		// At most one open borrowing per book.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_borrowings_open_book ON borrowings(book_id) WHERE return_date IS NULL`,

		// Open loans of a member.
		`CREATE INDEX IF NOT EXISTS idx_borrowings_member_open ON borrowings(member_id) WHERE return_date IS NULL`,
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return err
		}
	}

	return nil
}
