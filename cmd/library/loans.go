package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookstore/services/library/internal/lending"
)

func newBorrowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <member-id> <book-id>",
		Short: "Lend a book to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			bookID, err := parseID("book", args[1])
			if err != nil {
				return err
			}

			res, err := a.lending.Borrow(cmd.Context(), memberID, bookID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Book '%s' (ID: %d) successfully borrowed by %s (ID: %d).\n",
				res.BookTitle, bookID, res.MemberName, memberID)
			fmt.Fprintf(out, "Due date: %s\n", res.Borrowing.DueDate.Format(lending.DateLayout))
			return nil
		},
	}
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <book-id>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book", args[0])
			if err != nil {
				return err
			}

			res, err := a.lending.Return(cmd.Context(), bookID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Late != nil {
				fmt.Fprintf(out, "ALERT: This book is %d day(s) late!\n", res.Late.DaysLate)
			}
			fmt.Fprintf(out, "Book '%s' (ID: %d) returned successfully by %s.\n", res.BookTitle, bookID, res.MemberName)
			return nil
		},
	}
}

func newBorrowedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "borrowed <member-id>",
		Short: "List the books a member has on loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			memberID, err := parseID("member", args[0])
			if err != nil {
				return err
			}

			member, err := a.members.GetMember(ctx, memberID)
			if err != nil {
				return err
			}
			loans, err := a.lending.ListOpenBorrowingsForMember(ctx, memberID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			found := false
			for ob, err := range loans {
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintf(out, "--- Books borrowed by %s (ID: %d) ---\n", member.Name, member.ID)
					found = true
				}
				fmt.Fprintf(out, "Book ID: %d, Title: %s, Author: %s, Borrow Date: %s, Due Date: %s\n",
					ob.BookID, ob.Title, ob.Author,
					ob.BorrowDate.Format(lending.DateLayout), ob.DueDate.Format(lending.DateLayout))
			}
			if !found {
				fmt.Fprintf(out, "No books currently borrowed by %s.\n", member.Name)
			}
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalogue totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.catalog.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Books: %d, Borrowed: %d, Available: %d\n",
				stats.TotalBooks, stats.BorrowedBooks, stats.TotalBooks-stats.BorrowedBooks)
			return nil
		},
	}
}
