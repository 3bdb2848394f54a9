package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/narvanalabs/mission-control/internal/api"
	"github.com/narvanalabs/mission-control/internal/logfeed"
	"github.com/narvanalabs/mission-control/internal/search"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.APIPort = port
			}

			log := stderrLogger()
			server := api.NewServer(cfg, api.NewSources(cfg, log.Logger), log.Logger)

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Start(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")

	return cmd
}

func attestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attest",
		Short: "Check the attestation chain for gaps",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, src, err := sources()
			if err != nil {
				return err
			}
			report := src.Attestation.Report(commandContext(cmd))
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Healthy {
				return errors.New("attestation chain unhealthy")
			}
			return nil
		},
	}
}

func logsCmd() *cobra.Command {
	var (
		date  string
		limit int
		usage bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the newest entries of a day's log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, src, err := sources()
			if err != nil {
				return err
			}
			if usage {
				return printJSON(cmd.OutOrStdout(), src.Logs.Usage(commandContext(cmd)))
			}

			if date == "" {
				date = src.Logs.Today()
			} else if err := logfeed.ValidateDate(date); err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Logs.DefaultLimit
			}
			if cfg.Logs.MaxLimit > 0 && limit > cfg.Logs.MaxLimit {
				limit = cfg.Logs.MaxLimit
			}
			return printJSON(cmd.OutOrStdout(), src.Logs.Tail(commandContext(cmd), date, limit))
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "day to read, YYYY-MM-DD (default today)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum entries (default from config)")
	cmd.Flags().BoolVar(&usage, "usage", false, "print token usage totals instead")

	return cmd
}

func experimentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "experiments",
		Short: "Summarize the experiment journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, src, err := sources()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), src.Journal.Report(commandContext(cmd)))
		},
	}
}

func cronCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cron",
		Short: "List scheduled jobs and their next runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, src, err := sources()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), src.Cron.Report(commandContext(cmd)))
		},
	}
}

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search workspace notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, src, err := sources()
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Search.DefaultLimit
			}
			results, err := src.Search.Search(commandContext(cmd), args[0], limit)
			if errors.Is(err, search.ErrQueryTooShort) {
				return fmt.Errorf("query must be at least %d characters", search.MinQueryLength)
			}
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"query":   args[0],
				"count":   len(results),
				"results": results,
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum results (default from config)")

	return cmd
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// commandContext returns the command's context, or a background one when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
