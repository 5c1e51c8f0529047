package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"grievance/internal/config"
	"grievance/internal/platform/sqlite"
	"grievance/internal/session"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the stored portal session",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the stored session and user ids",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd.Context(), func(s *session.Store) error {
					return printSession(cmd, s)
				})
			},
		},
		&cobra.Command{
			Use:   "login <user-id>",
			Short: "Store the user the portal acts for",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd.Context(), func(s *session.Store) error {
					if err := s.SetUserID(cmd.Context(), args[0]); err != nil {
						return err
					}
					return printSession(cmd, s)
				})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Forget the user and start a new session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd.Context(), func(s *session.Store) error {
					if err := s.Clear(cmd.Context()); err != nil {
						return err
					}
					return printSession(cmd, s)
				})
			},
		},
	)
	return cmd
}

func withSession(ctx context.Context, fn func(*session.Store) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := sqlite.Open(ctx, cfg.Session.DBPath, sqlite.DefaultOptions())
	if err != nil {
		return fmt.Errorf("open session db: %w", err)
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	s, err := session.Open(ctx, db)
	if err != nil {
		return err
	}
	return fn(s)
}

func printSession(cmd *cobra.Command, s *session.Store) error {
	ctx := cmd.Context()
	out := struct {
		SessionID string `json:"sessionId"`
		UserID    string `json:"userId,omitempty"`
	}{SessionID: s.SessionID(ctx), UserID: s.UserID(ctx)}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
