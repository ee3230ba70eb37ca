package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bookstore/services/library/internal/catalog"
	"github.com/bookstore/services/library/internal/db"
)

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Add, remove, update and search books",
	}
	cmd.AddCommand(
		newBookAddCmd(a),
		newBookRemoveCmd(a),
		newBookUpdateCmd(a),
		newBookSearchCmd(a),
		newBookListCmd(a),
	)
	return cmd
}

func newBookAddCmd(a *app) *cobra.Command {
	var nb catalog.NewBook
	var year int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("year") {
				nb.Year = &year
			}
			id, err := a.catalog.AddBook(cmd.Context(), nb)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book '%s' added successfully with ID: %d\n", strings.TrimSpace(nb.Title), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&nb.Title, "title", "", "book title")
	cmd.Flags().StringVar(&nb.Author, "author", "", "book author")
	cmd.Flags().StringVar(&nb.ISBN, "isbn", "", "book ISBN")
	cmd.Flags().IntVar(&year, "year", 0, "publication year")
	for _, name := range []string{"title", "author", "isbn"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newBookRemoveCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <id-or-isbn>",
		Short: "Remove a book that is not on loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			book, err := a.catalog.ResolveBook(ctx, args[0])
			if err != nil {
				return err
			}
			if book.Status == db.StatusBorrowed {
				fmt.Fprintf(out, "Cannot remove '%s'. It is currently borrowed.\n", book.Title)
				return nil
			}

			if !yes && !confirm(cmd.InOrStdin(), out,
				fmt.Sprintf("Are you sure you want to remove '%s' (Book ID: %d)? (yes/no): ", book.Title, book.ID)) {
				fmt.Fprintln(out, "Book removal cancelled.")
				return nil
			}

			if err := a.catalog.RemoveBook(ctx, book.ID); err != nil {
				return err
			}
			fmt.Fprintf(out, "Book '%s' removed successfully!\n", book.Title)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "remove without asking")
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		fmt.Fprintln(out)
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(sc.Text()))
	return answer == "yes" || answer == "y"
}

func newBookUpdateCmd(a *app) *cobra.Command {
	var title, author, isbn string
	var year int

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the title, author, ISBN or year of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}

			var u catalog.BookUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				u.Title = &title
			}
			if flags.Changed("author") {
				u.Author = &author
			}
			if flags.Changed("isbn") {
				u.ISBN = &isbn
			}
			if flags.Changed("year") {
				u.Year = &year
			}

			changed, err := a.catalog.UpdateBook(cmd.Context(), id, u)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(changed) == 0 {
				fmt.Fprintln(out, "No changes made to the book.")
				return nil
			}
			fmt.Fprintf(out, "Book updated successfully! Changed: %s\n", strings.Join(changed, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&author, "author", "", "new author")
	cmd.Flags().StringVar(&isbn, "isbn", "", "new ISBN")
	cmd.Flags().IntVar(&year, "year", 0, "new publication year")
	return cmd
}

func newBookSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword>",
		Short: "Find books by title, author or ISBN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printBooks(cmd, a.catalog, args[0], "--- Search Results ---", "No books found matching your search.")
		},
	}
}

func newBookListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printBooks(cmd, a.catalog, "", "--- All Books ---", "No books in the library.")
		},
	}
}

func printBooks(cmd *cobra.Command, svc *catalog.Service, keyword, header, empty string) error {
	out := cmd.OutOrStdout()
	found := false
	for book, err := range svc.SearchBooks(cmd.Context(), keyword) {
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintln(out, header)
			found = true
		}
		fmt.Fprintln(out, formatBook(book))
	}
	if !found {
		fmt.Fprintln(out, empty)
	}
	return nil
}

func formatBook(b db.Book) string {
	year := "N/A"
	if b.PublicationYear != nil {
		year = fmt.Sprint(*b.PublicationYear)
	}
	return fmt.Sprintf("ID: %d, Title: %s, Author: %s, ISBN: %s, Year: %s, Status: %s",
		b.ID, b.Title, b.Author, b.ISBN, year, b.Status)
}
