package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"portalctl/internal/app"
	"portalctl/internal/cli"
	"portalctl/internal/session"
	"portalctl/pkg/token"
)

// authStatus is the machine-readable form of `auth status`.
type authStatus struct {
	Endpoint         string     `json:"endpoint"`
	State            string     `json:"state"`
	Identity         string     `json:"identity,omitempty"`
	Staff            bool       `json:"staff"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	HasRefreshToken  bool       `json:"hasRefreshToken"`
	RefreshExpiresAt *time.Time `json:"refreshExpiresAt,omitempty"`
	Storage          string     `json:"storage"`
}

func newAuthStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long: `Show whether portalctl holds a usable session, who it belongs to and
when the tokens expire. Nothing is sent to the portal.

Examples:
  portalctl auth status
  portalctl auth status -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWithServices(cmd, func(ctx context.Context, svc *app.Services) error {
				status, err := collectAuthStatus(ctx, svc)
				if err != nil {
					return err
				}
				p, err := opts.printer(cmd)
				if err != nil {
					return err
				}
				if p.Format != cli.OutputFormatTable {
					return p.Print(status, nil)
				}
				printAuthStatus(cmd, status)
				return nil
			})
		},
	}
}

func collectAuthStatus(ctx context.Context, svc *app.Services) (authStatus, error) {
	snap := svc.Session.Snapshot()
	status := authStatus{
		Endpoint: svc.Config.API.BaseURL,
		State:    snap.State.String(),
		Storage:  svc.Config.Storage.Backend,
	}

	if snap.Identity != nil {
		status.Identity = snap.Identity.Identity()
		status.Staff = snap.Identity.IsStaff
		if exp := snap.Identity.Expiry(); !exp.IsZero() {
			status.ExpiresAt = &exp
		}
	} else if access, err := svc.Session.AccessToken(ctx); err == nil && access != "" {
		// Expired access tokens still say who the session belonged to.
		if claims, err := token.Decode(access); err == nil {
			status.Identity = claims.Identity()
			if exp := claims.Expiry(); !exp.IsZero() {
				status.ExpiresAt = &exp
			}
		}
	}

	refreshToken, err := svc.Session.RefreshToken(ctx)
	if err != nil {
		return authStatus{}, err
	}
	if refreshToken != "" {
		status.HasRefreshToken = true
		if exp, ok := token.ExpiresAt(refreshToken); ok {
			status.RefreshExpiresAt = &exp
		}
	}
	return status, nil
}

func printAuthStatus(cmd *cobra.Command, status authStatus) {
	out := cmd.OutOrStdout()
	authenticated := status.State == session.StateAuthenticated.String()

	fmt.Fprintln(out, "Portal")
	fmt.Fprintf(out, "  Endpoint:  %s\n", status.Endpoint)
	fmt.Fprintf(out, "  Status:    %s\n", cli.FormatAuthState(authenticated))
	if status.Identity != "" {
		identity := status.Identity
		if status.Staff {
			identity += text.FgHiBlack.Sprint(" (staff)")
		}
		fmt.Fprintf(out, "  Identity:  %s\n", identity)
	}
	if status.ExpiresAt != nil {
		fmt.Fprintf(out, "  Expires:   %s\n", formatExpiryWithDirection(*status.ExpiresAt))
	}
	switch {
	case status.HasRefreshToken && status.RefreshExpiresAt != nil:
		fmt.Fprintf(out, "  Refresh:   %s (expires %s)\n", text.FgGreen.Sprint("Available"), formatExpiryWithDirection(*status.RefreshExpiresAt))
	case status.HasRefreshToken:
		fmt.Fprintf(out, "  Refresh:   %s\n", text.FgGreen.Sprint("Available"))
	default:
		fmt.Fprintf(out, "  Refresh:   %s\n", text.FgYellow.Sprint("Not available (re-auth required on expiry)"))
	}
	fmt.Fprintf(out, "  Storage:   %s\n", status.Storage)

	if !authenticated {
		if status.HasRefreshToken {
			fmt.Fprintln(out, "             The next request will refresh the access token.")
		} else {
			fmt.Fprintln(out, "             Run: portalctl auth login --username <user>")
		}
	}
}

// whoami is the machine-readable form of `auth whoami`.
type whoami struct {
	Identity  string    `json:"identity"`
	UserID    int64     `json:"userId,omitempty"`
	Email     string    `json:"email,omitempty"`
	Staff     bool      `json:"staff"`
	Superuser bool      `json:"superuser"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newAuthWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show current authenticated identity",
		Long: `Show the identity carried by the current access token.

An expired access token is refreshed first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWithServices(cmd, func(ctx context.Context, svc *app.Services) error {
				if !svc.Session.IsAuthenticated() {
					has, err := svc.Session.HasCredentials(ctx)
					if err != nil {
						return err
					}
					if !has {
						return &cli.AuthRequiredError{Endpoint: svc.Config.API.BaseURL}
					}
					stale, err := svc.Session.AccessToken(ctx)
					if err != nil {
						return err
					}
					if _, err := svc.Coordinator.RequestRefresh(ctx, stale); err != nil {
						return err
					}
				}

				claims := svc.Session.Identity()
				who := whoami{
					Identity:  claims.Identity(),
					UserID:    claims.UserID,
					Email:     claims.Email,
					Staff:     claims.IsStaff,
					Superuser: claims.IsSuperuser,
					IssuedAt:  claims.IssuedAt(),
					ExpiresAt: claims.Expiry(),
				}

				p, err := opts.printer(cmd)
				if err != nil {
					return err
				}
				return p.Print(who, func() *cli.Table {
					t := cli.NewTable("Identity", "User ID", "Staff", "Expires")
					t.AppendRow(who.Identity, who.UserID, who.Staff, formatExpiryWithDirection(who.ExpiresAt))
					return t
				})
			})
		},
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// formatExpiryWithDirection formats a time as "in X" or "expired X ago".
func formatExpiryWithDirection(expiresAt time.Time) string {
	if expiresAt.IsZero() {
		return "never"
	}
	remaining := time.Until(expiresAt)
	if remaining > 0 {
		return "in " + formatDuration(remaining)
	}
	return text.FgYellow.Sprintf("expired %s ago", formatDuration(-remaining))
}
