package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bookstore/services/library/internal/apperr"
)

func newMemberCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Register and search members",
	}
	cmd.AddCommand(newMemberAddCmd(a), newMemberSearchCmd(a))
	return cmd
}

func newMemberAddCmd(a *app) *cobra.Command {
	var name, contact string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.members.AddMember(cmd.Context(), name, contact)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Member '%s' added successfully with ID: %d!\n", name, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "member name")
	cmd.Flags().StringVar(&contact, "contact", "", "email, phone or other contact information")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newMemberSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search [keyword]",
		Short: "Find members by name or contact information",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := ""
			if len(args) == 1 {
				keyword = args[0]
			}

			out := cmd.OutOrStdout()
			found := false
			for m, err := range a.members.SearchMembers(cmd.Context(), keyword) {
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintln(out, "--- Member Search Results ---")
					found = true
				}
				fmt.Fprintf(out, "ID: %d, Name: %s, Contact: %s\n", m.ID, m.Name, m.ContactInfo)
			}
			if !found {
				fmt.Fprintln(out, "No members found matching your search.")
			}
			return nil
		},
	}
}

func parseID(field, raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid(field, "must be a positive number")
	}
	return uint(id), nil
}
