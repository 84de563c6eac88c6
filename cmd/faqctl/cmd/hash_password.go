package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanqian/faqbot/internal/domain/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print the bcrypt hash for auth.admins[].passwordHash",
	Long:  "Reads a password from the first line of stdin and prints its bcrypt hash. No server is contacted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		password, err := readLine(cmd)
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
