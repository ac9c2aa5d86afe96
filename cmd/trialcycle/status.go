package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/trialcycle/pkg/redis"
	"github.com/dmitrymomot/trialcycle/svc/trialstatus"
)

type statusLine struct {
	Source   string               `json:"source"`
	Snapshot trialstatus.Snapshot `json:"snapshot"`
}

func statusCmd() *cobra.Command {
	var (
		role    string
		feature string
		usage   int64
		limit   int64
	)

	cmd := &cobra.Command{
		Use:   "status <account-id>",
		Short: "Show the cached trial state, then the server-confirmed one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			accountID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid account id: %w", err)
			}

			base, err := load[appConfig]()
			if err != nil {
				return err
			}
			log := newLogger(base)

			cfg, err := load[trialstatus.Config]()
			if err != nil {
				return err
			}
			store, closeStore, err := openSnapshotStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			cache := trialstatus.NewCache(store,
				trialstatus.WithLRUSize(cfg.LRUSize),
				trialstatus.WithCacheLogger(log),
			)
			fetcher := trialstatus.NewHTTPFetcher(cfg.ServerURL,
				trialstatus.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
			)

			out := cmd.OutOrStdout()
			reconciler := trialstatus.NewReconciler(cache, trialstatus.StaticRole(role), fetcher,
				trialstatus.WithGovernedRoles(cfg.GovernedRoles...),
				trialstatus.WithReconcilerLogger(log),
				trialstatus.WithPublisher(func(u trialstatus.Update) {
					source := "cache"
					if u.Authoritative {
						source = "server"
					}
					printJSON(out, statusLine{Source: source, Snapshot: u.Snapshot})
				}),
			)

			session := reconciler.Start(ctx, accountID)
			defer session.End()
			if err := session.Wait(ctx); err != nil {
				return err
			}
			if session.TakeOnboarding() {
				fmt.Fprintln(out, "onboarding: pending")
			}

			if feature != "" {
				policy := trialstatus.RequireActive
				if limit > 0 {
					policy = trialstatus.TrialLimits(map[string]int64{feature: limit})
				}
				gate := trialstatus.NewGate(fetcher, policy,
					trialstatus.WithGateCache(cache),
					trialstatus.WithGateLogger(log),
				)
				fmt.Fprintf(out, "access %s: %t\n", feature, gate.Allow(ctx, accountID, feature, usage))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "owner", "role of the account in this session")
	cmd.Flags().StringVar(&feature, "feature", "", "also check access to this feature")
	cmd.Flags().Int64Var(&usage, "usage", 0, "current usage count for --feature")
	cmd.Flags().Int64Var(&limit, "trial-limit", 0, "usage cap for --feature while in trial, 0 for none")
	return cmd
}

func openSnapshotStore(ctx context.Context, cfg trialstatus.Config) (trialstatus.Store, func(), error) {
	if cfg.Backend != trialstatus.BackendRedis {
		store, err := cfg.NewStore(nil)
		return store, func() {}, err
	}

	redisCfg, err := load[redis.Config]()
	if err != nil {
		return nil, nil, err
	}
	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := cfg.NewStore(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, func() { _ = client.Close() }, nil
}

func printJSON(w io.Writer, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

