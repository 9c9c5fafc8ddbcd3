package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/mock"
)

var (
	mockPortFlag  int
	mockDelayFlag string
	mockUserFlags []string
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Start an in-memory backend",
	Long: `Start an in-memory implementation of the backend API, for trying mocha out
and for local development. Everything is lost when it stops.

Login codes are printed to the log instead of being mailed.

Examples:
  mocha mock
  mocha mock --port 3001 --delay 300ms
  mocha mock --user "Ada:ada@example.com:secret"`,
	Args: cobra.NoArgs,
	RunE: mockCommand,
}

func init() {
	mockCmd.Flags().IntVarP(&mockPortFlag, "port", "p", getEnvInt("MOCHA_MOCK_PORT", mock.DefaultPort), "Port to run the mock server on (env: MOCHA_MOCK_PORT)")
	mockCmd.Flags().StringVarP(&mockDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	mockCmd.Flags().StringArrayVar(&mockUserFlags, "user", nil, `Create an account on start ("name:email:password")`)
}

func mockCommand(cmd *cobra.Command, args []string) error {
	var delay time.Duration
	if mockDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(mockDelayFlag)
		if err != nil {
			return usageError("invalid delay value %q: %v", mockDelayFlag, err)
		}
	}

	opts := []mock.Option{
		mock.WithPort(mockPortFlag),
		mock.WithDelay(delay),
		mock.WithLogger(logger),
	}
	for _, u := range mockUserFlags {
		name, email, password, ok := parseMockUser(u)
		if !ok {
			return usageError("invalid --user %q, want name:email:password", u)
		}
		opts = append(opts, mock.WithUser(name, email, password))
	}

	server, err := mock.NewServer(opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Mock backend on http://localhost%s (press Ctrl+C to stop)\n", server.Addr())
	return server.Start(cmd.Context())
}

func parseMockUser(s string) (name, email, password string, ok bool) {
	name, rest, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return "", "", "", false
	}
	email, password, _ = strings.Cut(rest, ":")
	return name, email, password, email != ""
}
