package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/lifecycle"
	subservice "github.com/magabrotheeeer/subscription-tracker/internal/services/subscription"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/cache"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

func evaluateCmd() *cobra.Command {
	var at, userUID string
	var catchUp bool

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run lifecycle evaluation once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger()
			loc := cfg.Lifecycle.Location()
			now, err := parseAt(at, loc)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := repository.New(ctx, cfg.StorageConnectionString)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			// Без redis пересчет все равно выполняется, кэш просто не сбрасывается.
			var c subservice.Cache
			redisCache, err := cache.InitServer(ctx, cfg.RedisConnection)
			if err != nil {
				log.Warn("redis unavailable, cache will not be invalidated", sl.Err(err))
			} else {
				defer func() { _ = redisCache.Close() }()
				c = redisCache
			}

			clk := clock.NewFixed(now)
			subs := subservice.New(db, c, clk, loc, log)
			svc := lifecycle.NewService(db, subs, clk, loc,
				lifecycle.Options{CatchUp: catchUp || cfg.CatchUp}, metrics.Default(), log)

			var res *lifecycle.EvaluationResult
			if userUID != "" {
				res, err = svc.EvaluateUser(ctx, userUID)
			} else {
				res, err = svc.EvaluateAll(ctx)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluation moment, RFC3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&userUID, "user", "", "evaluate only this user's subscriptions")
	cmd.Flags().BoolVar(&catchUp, "catch-up", false, "apply every missed renewal, not just the latest")
	return cmd
}
