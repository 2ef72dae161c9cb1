package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		email, password, err := credentials(cmd)
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		token, err := e.client.Login(ctx, email, password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if err := e.auth.Login(ctx, token); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: token not persisted:", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.auth.Logout(commandContext(cmd)); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		email, password, err := credentials(cmd)
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		user, err := e.client.Register(ctx, email, password)
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}

		// Registration does not return a token; sign in right away.
		token, err := e.client.Login(ctx, email, password)
		if err != nil {
			return fmt.Errorf("login after register: %w", err)
		}
		if err := e.auth.Login(ctx, token); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: token not persisted:", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (user %d) and logged in.\n", user.Email, user.ID)
		return nil
	},
}

// credentials takes --email and --password, prompting on stdin for
// whichever is missing.
func credentials(cmd *cobra.Command) (email, password string, err error) {
	email, _ = cmd.Flags().GetString("email")
	password, _ = cmd.Flags().GetString("password")

	in := bufio.NewReader(cmd.InOrStdin())
	if email == "" {
		if email, err = prompt(cmd.OutOrStdout(), in, "Email: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = prompt(cmd.OutOrStdout(), in, "Password: "); err != nil {
			return "", "", err
		}
	}
	if email == "" || password == "" {
		return "", "", errors.New("email and password are required")
	}
	return email, password, nil
}

func prompt(out io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringP("email", "e", "", "Account email")
		c.Flags().StringP("password", "p", "", "Account password (prompted when omitted)")
	}
}
