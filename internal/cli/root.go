package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"grievance/internal/app"
	"grievance/internal/shared"
)

// Execute runs the portal command line.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "portal",
		Short: "Grievance portal backend",
		Long:  `Portal serves the grievance portal API: cached access to complaints, notifications, profiles and analytics with centralized error handling.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath != "" {
				return os.Setenv("CONFIG_FILE", cfgPath)
			}
			return nil
		},
		RunE:         runServe,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML config file (env CONFIG_FILE)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server and background jobs",
			RunE:  runServe,
		},
		newClassifyCmd(),
		newSessionCmd(),
	)
	return root
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := app.New()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return a.Run()
}

func newClassifyCmd() *cobra.Command {
	var (
		status  int
		code    string
		message string
		network bool
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print how an API failure would be classified",
		Example: `  portal classify --status 503
  portal classify --status 400 --message "validation failed: title"
  portal classify --network`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			switch {
			case network:
				err = shared.NewNetworkError(errors.New(defaultMessage(message, "connection refused")))
			case status != 0 || code != "" || message != "":
				err = shared.NewRemoteError(status, code, message, nil)
			default:
				return errors.New("one of --status, --code, --message or --network is required")
			}

			out := struct {
				Message string `json:"message"`
				shared.Classification
			}{Message: err.Error(), Classification: shared.Classify(err)}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().IntVar(&status, "status", 0, "HTTP status of the response")
	cmd.Flags().StringVar(&code, "code", "", "error code from the response body")
	cmd.Flags().StringVar(&message, "message", "", "error message from the response body")
	cmd.Flags().BoolVar(&network, "network", false, "classify a transport failure")
	return cmd
}

func defaultMessage(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
