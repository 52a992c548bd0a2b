package cmd

import (
	"errors"

	"github.com/brk3/habitflow/internal/apiclient"
	"github.com/brk3/habitflow/internal/auth"
	"github.com/spf13/cobra"
)

var passwordFlag string

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account and log in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, args[0], true)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and save the session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, args[0], false)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the saved session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		if err := newClient().Logout(ctx); err != nil && !errors.Is(err, apiclient.ErrTransient) {
			return err
		}
		cmd.Println("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		u, err := newClient().Me(ctx)
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return errors.New("not logged in, run: habitflow login <email>")
		}
		if err != nil {
			return err
		}
		if u.Email == "" {
			cmd.Println(u.ID)
			return nil
		}
		cmd.Printf("%s (%s)\n", u.Email, u.ID)
		return nil
	},
}

var apiKeyCmd = &cobra.Command{
	Use:   "api-key",
	Short: "Generate an API key for scripts",
	Long: `The "api-key" command creates a long-lived key for the logged in user.
Send it as "Authorization: Bearer <key>". It is shown only once.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		key, err := newClient().CreateAPIKey(ctx)
		if err != nil {
			return err
		}
		cmd.Println(key)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVar(&passwordFlag, "password", "", "password (prompted when omitted)")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(logoutCmd, whoamiCmd, apiKeyCmd)
}

func authenticate(cmd *cobra.Command, email string, register bool) error {
	password := passwordFlag
	if password == "" {
		var err error
		if password, err = readPassword(cmd, "Password: "); err != nil {
			return err
		}
	}
	if err := auth.CheckCredentials(email, password); err != nil {
		return err
	}
	if register && len(password) < auth.MinPasswordLength {
		return auth.ErrWeakPassword
	}

	ctx, cancel := requestContext(cmd)
	defer cancel()
	c := newClient()
	login := c.Login
	verb := "Logged in"
	if register {
		login = c.Register
		verb = "Registered"
	}
	resp, err := login(ctx, email, password)
	if err != nil {
		return err
	}
	cmd.Printf("%s as %s\n", verb, resp.User.Email)
	return nil
}
