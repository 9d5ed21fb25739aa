package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"portalctl/internal/app"
	"portalctl/internal/cli"
	"portalctl/internal/portal"
)

func newAuthCmd(opts *rootOptions) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication for portalctl",
		Long: `Manage the portal session used by portalctl commands.

Examples:
  portalctl auth login --username ops   # Sign in (password prompted)
  portalctl auth status                 # Show authentication status
  portalctl auth whoami                 # Show current identity
  portalctl auth refresh                # Force token refresh
  portalctl auth logout                 # Remove stored credentials`,
	}

	authCmd.AddCommand(newAuthLoginCmd(opts))
	authCmd.AddCommand(newAuthLogoutCmd(opts))
	authCmd.AddCommand(newAuthRefreshCmd(opts))
	authCmd.AddCommand(newAuthStatusCmd(opts))
	authCmd.AddCommand(newAuthWhoamiCmd(opts))
	return authCmd
}

func newAuthLoginCmd(opts *rootOptions) *cobra.Command {
	var req portal.LoginRequest
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the portal",
		Long: `Sign in with a username and password and store the resulting tokens.

The password is read from --password, from stdin with --password-stdin,
or prompted for on the terminal.

Examples:
  portalctl auth login --username ops
  portalctl auth login --username ops --organization acme
  echo "$PASSWORD" | portalctl auth login --username ops --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				password, err := readPassword(cmd, passwordStdin)
				if err != nil {
					return err
				}
				req.Password = password
			}
			return opts.runWithServices(cmd, func(ctx context.Context, svc *app.Services) error {
				return runAuthLogin(ctx, cmd, opts, svc, req)
			})
		},
	}

	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "Portal username")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Portal password (prefer the prompt or --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().StringVar(&req.Organization, "organization", "", "Organization to sign in to")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func runAuthLogin(ctx context.Context, cmd *cobra.Command, opts *rootOptions, svc *app.Services, req portal.LoginRequest) error {
	endpoint := svc.Config.API.BaseURL

	creds, err := svc.Client.Login(ctx, req)
	if err != nil {
		var apiErr *portal.APIError
		if errors.As(err, &apiErr) && (apiErr.IsUnauthorized() || apiErr.StatusCode == http.StatusBadRequest) {
			return &cli.AuthFailedError{Endpoint: endpoint, Reason: err}
		}
		return err
	}

	if err := svc.Session.OnLoginSuccess(ctx, *creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	opts.info(cmd, "%s", cli.FormatSuccess(fmt.Sprintf("Logged in to %s as %s", endpoint, svc.Session.Identity().Identity())))
	return nil
}

// readPassword reads the password from stdin, prompting without echo when
// stdin is a terminal.
func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	stdin := cmd.InOrStdin()
	if f, ok := stdin.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("no password given, use --password, --password-stdin or run in a terminal")
	}
	return password, nil
}

func newAuthLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long: `Remove the stored access and refresh tokens.

The next command that needs the portal will ask you to log in again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWithServices(cmd, func(ctx context.Context, svc *app.Services) error {
				// Unreadable credentials are cleared too.
				has, err := svc.Session.HasCredentials(ctx)
				if err != nil {
					has = true
				}
				if err := svc.Session.OnSessionEnd(ctx, "logout"); err != nil {
					return fmt.Errorf("failed to clear credentials: %w", err)
				}
				if !has {
					opts.info(cmd, "No stored credentials to clear.")
					return nil
				}
				opts.info(cmd, "%s", cli.FormatSuccess("Logged out"))
				return nil
			})
		},
	}
}

func newAuthRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force token refresh",
		Long: `Exchange the stored refresh token for a new access token now.

If the portal rejects the refresh token the stored credentials are removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWithServices(cmd, func(ctx context.Context, svc *app.Services) error {
				stale, err := svc.Session.AccessToken(ctx)
				if err != nil {
					return err
				}
				if _, err := svc.Coordinator.RequestRefresh(ctx, stale); err != nil {
					return err
				}
				opts.info(cmd, "%s", cli.FormatSuccess("Token refreshed, expires "+formatExpiryWithDirection(svc.Session.Identity().Expiry())))
				return nil
			})
		},
	}
}
