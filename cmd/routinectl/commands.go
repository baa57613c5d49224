package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/routinerec/internal/adapters/cache"
	"github.com/okian/routinerec/internal/adapters/export"
	"github.com/okian/routinerec/internal/adapters/repository"
	"github.com/okian/routinerec/internal/config"
	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/internal/seeder"
	"github.com/okian/routinerec/pkg/logger"
)

const exportFilePermission = 0o600

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "routinectl",
		Short:         "Operate the routine recorder",
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(
		newUsersCmd(),
		newExportCmd(),
		newSeedCmd(),
		newHashPasswordCmd(),
	)
	return root
}

func roster(cfg *config.Config) []model.User {
	out := make([]model.User, 0, len(cfg.Roster))
	for _, e := range cfg.Roster {
		out = append(out, model.User{ID: e.ID, DisplayName: e.Name})
	}
	return out
}

func newUsersCmd() *cobra.Command {
	var stored bool
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Print the configured roster",
		Long: `Prints the roster as "id<TAB>name". With --stored, a third column says
whether the configured store holds a record for the user, and stored records
for ids outside the roster are listed after it with an empty name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			users := roster(cfg)
			if !stored {
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\n", u.ID, u.DisplayName)
				}
				return nil
			}

			store, err := repository.Open(cfg.Store.Driver, cfg.Store.Path, repository.WithLogger(logger.Named("users")))
			if err != nil {
				return err
			}
			defer store.Close()
			ids, err := store.IDs(ctx)
			if err != nil {
				return err
			}
			have := make(map[string]bool, len(ids))
			for _, id := range ids {
				have[id] = true
			}
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.DisplayName, yesNo(have[u.ID]))
				delete(have, u.ID)
			}
			for _, id := range ids {
				if have[id] {
					fmt.Fprintf(w, "%s\t\t%s\n", id, yesNo(true))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stored, "stored", false, "also report which users have a stored record")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored record to an XLSX workbook",
		Long: `Loads every roster user from the configured store and writes a workbook
with a Submissions sheet and a Routines sheet. Store settings come from the
same ROUTINE_* environment and ROUTINE_CONFIG file as the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			log := logger.Named("export")

			store, err := repository.Open(cfg.Store.Driver, cfg.Store.Path, repository.WithLogger(log))
			if err != nil {
				return err
			}
			defer store.Close()

			users := roster(cfg)
			c, err := cache.New(store, users, cache.WithWorkers(cfg.Cache.RefreshWorkers), cache.WithLogger(log))
			if err != nil {
				return err
			}
			snap, err := c.RefreshAll(ctx)
			if err != nil {
				return err
			}
			if snap.Incomplete() {
				log.Warn(ctx, "exporting without some users", logger.Any("missing", snap.Missing))
			}

			book, err := export.Workbook(snap.Data.Entries(users))
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, book, exportFilePermission); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(book))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "routines_"+time.Now().Format("2006-01-02")+".xlsx", "output file")
	return cmd
}

func newSeedCmd() *cobra.Command {
	cfg := seeder.DefaultConfig()
	var events []string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Record synthetic sessions against a running service and verify its breakdowns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed := make([]model.Event, 0, len(events))
			for _, s := range events {
				e, err := model.ParseEvent(s)
				if err != nil {
					return err
				}
				parsed = append(parsed, e)
			}
			cfg.Events = parsed

			r, err := seeder.NewRunner(cfg, nil, logger.Named("seeder"))
			if err != nil {
				return err
			}
			stats, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d sessions for %d users in %s\n",
				stats.SessionsRecorded, stats.Users, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	f.StringVar(&cfg.Password, "password", os.Getenv("ROUTINE_PASSWORD"), "shared password (default $ROUTINE_PASSWORD)")
	f.IntVar(&cfg.Users, "users", cfg.Users, "roster users to seed, 0 for all")
	f.IntVar(&cfg.Sessions, "sessions", cfg.Sessions, "submissions per user")
	f.IntVar(&cfg.Replays, "replays", cfg.Replays, "submissions replayed with a used idempotency key")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent submitters")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every request")
	f.StringSliceVar(&events, "events", eventNames(cfg.Events), "events to build routines for")
	return cmd
}

func eventNames(events []model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.String()
	}
	return out
}

func newHashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash to use as password_hash",
		Long:  "Hashes the argument, or the first line of stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pw string
			if len(args) == 1 {
				pw = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				pw = strings.TrimRight(line, "\r\n")
			}
			if pw == "" {
				return errors.New("empty password")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}
