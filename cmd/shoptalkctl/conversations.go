package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func conversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "Manage stored conversations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "count <tenant-id>",
		Short: "Count stored conversations for a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			n, err := st.Conversations().CountByTenant(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <tenant-id> <user-id>",
		Short: "Delete one user's conversation record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			if err := st.Conversations().Delete(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("deleted conversation %s/%s\n", args[0], args[1])
			return nil
		},
	})

	return cmd
}
