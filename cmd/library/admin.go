package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"go_library/internal/db"
	"go_library/internal/users"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword reads a password from the terminal without echo
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func createAdminCmd() *cobra.Command {
	var in users.RegisterInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Username == "" {
				return fmt.Errorf("--username is required")
			}
			if !term.IsTerminal(int(syscall.Stdin)) {
				return fmt.Errorf("create-admin needs an interactive terminal for the password")
			}
			password, err := readPassword("Password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			confirm, err := readPassword("Confirm password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if password != confirm {
				return fmt.Errorf("passwords do not match")
			}
			in.Password = password

			_, logger, gormDB, err := setup()
			if err != nil {
				return err
			}
			defer db.Close(gormDB)

			svc := users.NewService(gormDB, nil, logger.WithField("command", "create-admin"))
			user, err := svc.CreateAdmin(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Created admin %s with ID %d\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Username, "username", "u", "", "login name")
	cmd.Flags().StringVar(&in.FullName, "full-name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "contact email")
	return cmd
}
