package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/api"
)

var (
	loginEmailFlag    string
	loginPasswordFlag string
	loginCodeFlag     bool

	signupNameFlag     string
	signupEmailFlag    string
	signupPhoneFlag    string
	signupPasswordFlag string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the backend",
	Long: `Sign in with a password, or with a one-time code sent to your email.

Examples:
  mocha login --email ada@example.com --password secret
  mocha login --email ada@example.com --code`,
	Args: cobra.NoArgs,
	RunE: loginCommand,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.client.SignOut(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireUser(); err != nil {
			return err
		}
		user, err := a.client.Me(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s <%s>\n", color.New(color.Bold).Sprint(user.Name), user.Email)
		if org := a.org.Get(); org != nil {
			fmt.Fprintf(out, "Organization: %s (%s)\n", org.Name, org.ID)
		}
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if signupNameFlag == "" || signupEmailFlag == "" {
			return usageError("--name and --email are required")
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		creds, err := a.client.Register(cmd.Context(), api.SignUp{
			Name:     signupNameFlag,
			Email:    signupEmailFlag,
			Phone:    signupPhoneFlag,
			Password: signupPasswordFlag,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s.\n", creds.User.Name)
		return nil
	},
}

var nameCmd = &cobra.Command{
	Use:   "name <new name>",
	Short: "Change your display name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireUser(); err != nil {
			return err
		}
		me := a.auth.User()
		if me == nil {
			if me, err = a.client.Me(cmd.Context()); err != nil {
				return err
			}
		}
		user, err := a.client.UpdateName(cmd.Context(), me.ID, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Name changed to %s.\n", user.Name)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmailFlag, "email", getEnvString("MOCHA_EMAIL", ""), "Account email (env: MOCHA_EMAIL)")
	loginCmd.Flags().StringVar(&loginPasswordFlag, "password", getEnvString("MOCHA_PASSWORD", ""), "Account password (env: MOCHA_PASSWORD)")
	loginCmd.Flags().BoolVar(&loginCodeFlag, "code", false, "Sign in with a one-time code sent by email")

	signupCmd.Flags().StringVar(&signupNameFlag, "name", "", "Display name")
	signupCmd.Flags().StringVar(&signupEmailFlag, "email", "", "Account email")
	signupCmd.Flags().StringVar(&signupPhoneFlag, "phone", "", "Phone number")
	signupCmd.Flags().StringVar(&signupPasswordFlag, "password", "", "Password; without one, sign in with codes")
}

func loginCommand(cmd *cobra.Command, args []string) error {
	if loginEmailFlag == "" {
		return usageError("--email is required")
	}
	if !loginCodeFlag && loginPasswordFlag == "" {
		return usageError("--password or --code is required")
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var creds *api.Credentials
	if loginCodeFlag {
		if err := a.client.RequestCode(ctx, loginEmailFlag); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "A code was sent to %s. Code: ", loginEmailFlag)
		code, err := readLine(cmd.InOrStdin())
		if err != nil {
			return err
		}
		creds, err = a.client.SignInWithCode(ctx, loginEmailFlag, code)
		if err != nil {
			return err
		}
	} else {
		creds, err = a.client.SignIn(ctx, loginEmailFlag, loginPasswordFlag)
		if err != nil {
			return err
		}
	}

	// A new session starts without a selected organization.
	if err := a.org.Set(ctx, nil); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", color.GreenString(creds.User.Name))
	return nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", usageError("no code entered")
	}
	return line, nil
}
