package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/tuipesync/internal/api"
	"github.com/verte-zerg/tuipesync/internal/metrics"
	"github.com/verte-zerg/tuipesync/internal/model"
	"github.com/verte-zerg/tuipesync/internal/remote"
	"github.com/verte-zerg/tuipesync/internal/stats"
	"github.com/verte-zerg/tuipesync/internal/syncer"
)

const (
	defaultTrendWindow = 5
	shutdownTimeout    = 10 * time.Second
)

var (
	scoresLimit    int
	scoresPersonal bool
	scoresWindow   int

	loginClaim bool

	syncdAddr string
)

// withApp loads settings, wires the app and hands it to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	_, settings, err := loadSettings(configPath, false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, settings, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newScoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Show the leaderboard or your personal history",
		Args:  cobra.NoArgs,
		RunE:  runScoresCmd,
	}
	cmd.Flags().IntVar(&scoresLimit, "limit", syncer.DefaultLimit, "number of scores to show")
	cmd.Flags().BoolVar(&scoresPersonal, "personal", false, "show only your own scores")
	cmd.Flags().IntVar(&scoresWindow, "window", defaultTrendWindow, "moving average window for the trend line")
	return cmd
}

func runScoresCmd(cmd *cobra.Command, _ []string) error {
	if scoresLimit <= 0 {
		return fmt.Errorf("--limit must be > 0")
	}
	if scoresWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		if scoresPersonal {
			scores, err := a.engine.PersonalHighScores(ctx, scoresLimit)
			if err != nil {
				return fmt.Errorf("failed to load personal scores: %w", err)
			}
			return stats.RenderHistory(out, scores, scoresWindow)
		}
		scores, err := a.engine.CombinedHighScores(ctx, scoresLimit)
		if err != nil {
			return fmt.Errorf("failed to load leaderboard: %w", err)
		}
		viewer, err := a.ident.Current(ctx)
		if err != nil {
			return err
		}
		if !a.prober.Online() {
			logErrf("offline: showing local scores only\n")
		}
		return stats.RenderLeaderboard(out, scores, viewer)
	})
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push unsynced local scores to the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				pending, err := a.store.GetUnsynced(ctx)
				if err != nil {
					return err
				}
				if !a.prober.Online() {
					fmt.Fprintf(cmd.OutOrStdout(), "Offline: %d scores waiting to sync.\n", len(pending))
					return nil
				}
				if _, err := a.engine.SyncAll(ctx); err != nil {
					var agg *model.AggregateSyncError
					if errors.As(err, &agg) {
						fmt.Fprintf(cmd.OutOrStdout(), "Synced %d of %d scores.\n", agg.Total-agg.Failed, agg.Total)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d scores.\n", len(pending))
				return nil
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show identity, connectivity and pending scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				id, err := a.ident.Current(ctx)
				if err != nil {
					return err
				}
				pending, err := a.store.GetUnsynced(ctx)
				if err != nil {
					return err
				}
				user := id.UserID
				if user == "" {
					user = "(anonymous)"
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "User:         %s\n", user)
				fmt.Fprintf(out, "Device:       %s\n", id.AnonymousID)
				fmt.Fprintf(out, "Remote:       %s\n", remoteState(a))
				fmt.Fprintf(out, "Unsynced:     %d\n", len(pending))
				return nil
			})
		},
	}
}

func remoteState(a *app) string {
	switch {
	case a.settings.Remote.DSN == "":
		return "not configured"
	case a.prober.Online():
		return "online"
	default:
		return "offline"
	}
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <user-id>",
		Short: "Attach this device's scores to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.engine.HandleLogin(ctx, args[0], loginClaim)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Logged in as %s.\n", args[0])
				fmt.Fprintf(out, "Reassigned %d local scores.\n", res.Reassigned)
				if loginClaim {
					fmt.Fprintf(out, "Claimed %d remote scores.\n", res.Claimed)
				}
				if !res.AllSynced {
					fmt.Fprintln(out, "Some scores are still waiting to sync.")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&loginClaim, "claim", false, "also claim remote scores recorded anonymously by this device")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.engine.HandleLogout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				return nil
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the remote schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, settings, err := loadSettings(configPath, false)
			if err != nil {
				return err
			}
			if settings.Remote.DSN == "" {
				return fmt.Errorf("remote.dsn is not set")
			}
			n, err := remote.Migrate(cmd.Context(), settings.Remote.DSN)
			if err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migrations.\n", n)
			return nil
		},
	}
}

func newSyncdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syncd",
		Short: "Run background sync and serve scores over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, runSyncd)
		},
	}
	cmd.Flags().StringVar(&syncdAddr, "addr", "127.0.0.1:8787", "listen address")
	return cmd
}

func runSyncd(ctx context.Context, a *app) error {
	srv := &http.Server{
		Addr: syncdAddr,
		Handler: api.NewRouter(api.Deps{
			Views:   a.engine,
			Online:  a.prober.Online,
			Metrics: metrics.Handler(a.registry),
			Logger:  a.logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.prober.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := a.engine.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.logger.Info("syncd listening", "addr", syncdAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		a.logger.Info("syncd stopped")
		return nil
	})
	return g.Wait()
}
