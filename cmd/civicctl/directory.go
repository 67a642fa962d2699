package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"promise-tracker/models"
)

func newUserCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage known users"}

	var name string
	add := &cobra.Command{
		Use:   "add <user-id> <admin|moderator|citizen>",
		Short: "Register a gateway user id with a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := models.Role(args[1])
			if !role.Valid() {
				return fmt.Errorf("unknown role %q", args[1])
			}
			store, err := e.openStore()
			if err != nil {
				return err
			}
			u := &models.User{UserID: args[0], Name: name, Role: role}
			if err := store.CreateUser(cmd.Context(), u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name")
	cmd.AddCommand(add)
	return cmd
}

func newPromiseCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "promise", Short: "Manage promises"}

	var slug string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a promise evidence can be attached to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.openStore()
			if err != nil {
				return err
			}
			p := &models.Promise{Title: args[0], Slug: slug}
			if err := store.CreatePromise(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", p.ID)
			return nil
		},
	}
	add.Flags().StringVar(&slug, "slug", "", "URL slug")
	cmd.AddCommand(add)
	return cmd
}
