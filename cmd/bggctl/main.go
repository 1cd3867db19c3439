// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

// Command bggctl runs one-off BGG Sync operations without the server.
//
// Usage:
//
//	bggctl validate-auth --username alice --token xxxxxxxx
//	bggctl sync-once alice
//	bggctl record-play --username alice --game 13 --player Alice:win --player Bob
//
// Configuration is read the same way as the server (config.yaml and the
// environment); a .env file in the working directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tomtom215/bggsync/internal/bgg"
	"github.com/tomtom215/bggsync/internal/config"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/models"
	"github.com/tomtom215/bggsync/internal/recorder"
	"github.com/tomtom215/bggsync/internal/store"
	syncer "github.com/tomtom215/bggsync/internal/sync"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	// .env is optional.
	_ = godotenv.Load(".env")

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:          "bggctl",
		Short:        "BGG Sync command line tool",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(logging.Config{
				Level:     flags.logLevel,
				Format:    "console",
				Timestamp: true,
				Output:    cmd.ErrOrStderr(),
			})
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default: CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level")

	root.AddCommand(validateAuthCmd(flags))
	root.AddCommand(syncOnceCmd(flags))
	root.AddCommand(recordPlayCmd(flags))
	return root
}

// --------------------------------------------------------------------------
// validate-auth
// --------------------------------------------------------------------------

func validateAuthCmd(flags *globalFlags) *cobra.Command {
	var username, token string
	cmd := &cobra.Command{
		Use:   "validate-auth",
		Short: "Check a username and API token against BGG",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(flags, func(ctx context.Context, cfg *config.Config) error {
				client := bgg.NewClient(&cfg.BGG)
				if err := client.ValidateAuth(ctx, username, token); err != nil {
					return fmt.Errorf("%s: %w", username, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: credentials accepted\n", username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "BGG username")
	cmd.Flags().StringVar(&token, "token", "", "BGG API token")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

// --------------------------------------------------------------------------
// sync-once
// --------------------------------------------------------------------------

// syncSummary is the per-account output of sync-once.
type syncSummary struct {
	Username        string                  `json:"username"`
	State           models.SyncState        `json:"state"`
	Available       bool                    `json:"available"`
	FailureReason   string                  `json:"failure_reason,omitempty"`
	TotalPlays      int                     `json:"total_plays"`
	Collection      models.CollectionCounts `json:"collection"`
	CollectionStale bool                    `json:"collection_stale"`
	TrackedGames    map[int]int             `json:"tracked_game_plays,omitempty"`
}

func summarize(s models.CoordinatorSnapshot) syncSummary {
	return syncSummary{
		Username:        s.Username,
		State:           s.State,
		Available:       s.Available,
		FailureReason:   s.FailureReason,
		TotalPlays:      s.Plays.Total,
		Collection:      s.Collection.Counts(),
		CollectionStale: s.CollectionStale,
		TrackedGames:    s.GamePlays,
	}
}

func syncOnceCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync-once [username...]",
		Short: "Run one refresh cycle for configured accounts and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(flags, func(ctx context.Context, cfg *config.Config) error {
				coordinator, closeFn, err := offlineCoordinator(cfg)
				if err != nil {
					return err
				}
				defer closeFn()

				names := args
				if len(names) == 0 {
					for _, a := range coordinator.Accounts() {
						names = append(names, a.Username)
					}
				}
				if len(names) == 0 {
					return errors.New("no accounts configured (set BGG_ACCOUNTS or accounts in config.yaml)")
				}

				var out []syncSummary
				failed := 0
				for _, name := range names {
					snap, err := coordinator.RefreshNow(ctx, name)
					if err != nil {
						return err
					}
					if snap.State == models.StateFailed {
						failed++
					}
					out = append(out, summarize(snap))
				}
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d accounts failed to sync", failed, len(names))
				}
				return nil
			})
		},
	}
	return cmd
}

// --------------------------------------------------------------------------
// record-play
// --------------------------------------------------------------------------

// parsePlayer parses "Name[:win][:score]" as used by --player.
func parsePlayer(s string) (models.PlayerEntry, error) {
	parts := strings.Split(s, ":")
	p := models.PlayerEntry{Name: strings.TrimSpace(parts[0])}
	if p.Name == "" {
		return p, fmt.Errorf("player %q has no name", s)
	}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch {
		case strings.EqualFold(part, "win"):
			p.Win = true
		case part != "":
			p.Score = part
		}
	}
	return p, nil
}

func recordPlayCmd(flags *globalFlags) *cobra.Command {
	var (
		req     models.PlayRecordRequest
		players []string
	)
	cmd := &cobra.Command{
		Use:   "record-play",
		Short: "Record a play on BGG for a configured account",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range players {
				p, err := parsePlayer(raw)
				if err != nil {
					return err
				}
				req.Players = append(req.Players, p)
			}
			return withConfig(flags, func(ctx context.Context, cfg *config.Config) error {
				coordinator, closeFn, err := offlineCoordinator(cfg)
				if err != nil {
					return err
				}
				defer closeFn()

				client := bgg.NewClient(&cfg.BGG)
				worker := recorder.NewBoundaryWorker(1, cfg.Recorder.SubmitTimeout)
				workerCtx, stopWorker := context.WithCancel(ctx)
				done := make(chan struct{})
				go func() {
					defer close(done)
					_ = worker.Serve(workerCtx)
				}()
				defer func() {
					stopWorker()
					<-done
				}()

				rec := recorder.New(coordinator, recorder.ClientSessions(client), worker,
					recorder.WithFetcher(client),
					recorder.WithLocation(cfg.PlayLocation()),
				)
				res, err := rec.Record(ctx, req)
				if err != nil {
					return fmt.Errorf("record play (%s): %w", recorder.Classify(err), err)
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Username, "username", "", "configured account to record for")
	f.IntVar(&req.GameID, "game", 0, "BGG game id")
	f.StringVar(&req.Date, "date", "", "play date YYYY-MM-DD (default: today)")
	f.IntVar(&req.Length, "length", 0, "play length in minutes")
	f.StringVar(&req.Comments, "comments", "", "play comments")
	f.StringVar(&req.Location, "location", "", "play location")
	f.BoolVar(&req.Incomplete, "incomplete", false, "mark the play incomplete")
	f.BoolVar(&req.NoWinStats, "no-win-stats", false, "exclude the play from win stats")
	f.StringArrayVar(&players, "player", nil, "player as Name[:win][:score], repeatable")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}

// --------------------------------------------------------------------------
// helpers
// --------------------------------------------------------------------------

func withConfig(flags *globalFlags, fn func(ctx context.Context, cfg *config.Config) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadFile(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return fn(ctx, cfg)
}

// offlineCoordinator builds a coordinator over the configured accounts with
// a throwaway in-memory metadata cache, so it never contends with a running
// server for the badger lock.
func offlineCoordinator(cfg *config.Config) (*syncer.Coordinator, func(), error) {
	accounts, err := cfg.SeedAccounts()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.OpenInMemory()
	if err != nil {
		return nil, nil, err
	}
	cache, err := store.NewMetadataCache(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	var fetcher bgg.Fetcher = bgg.NewClient(&cfg.BGG)
	coordinator := syncer.NewCoordinator(fetcher, cache, cfg.Sync)
	for _, a := range accounts {
		if err := coordinator.AddAccount(a); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return coordinator, func() { _ = db.Close() }, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
