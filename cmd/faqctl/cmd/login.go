package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	loginUser     string
	passwordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain an admin token",
	Long: `Exchange admin credentials for a bearer token and print it.
The password is read from the first line of stdin.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginUser, "user", "", "admin username")
	loginCmd.Flags().BoolVar(&passwordStdin, "password-stdin", true, "read the password from stdin")
	_ = loginCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	if !passwordStdin {
		return errors.New("the password can only be supplied on stdin")
	}
	password, err := readLine(cmd)
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	resp, err := c.Login(cmd.Context(), loginUser, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
	return nil
}

func readLine(cmd *cobra.Command) (string, error) {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.New("expected a line on stdin")
	}
	return strings.TrimRight(scanner.Text(), "\r"), nil
}
