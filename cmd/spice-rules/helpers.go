package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/spice-rules/internal/cache"
	"github.com/Veraticus/spice-rules/internal/cli"
	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/Veraticus/spice-rules/internal/engine"
	"github.com/Veraticus/spice-rules/internal/ingest"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/Veraticus/spice-rules/internal/repository"
	"github.com/Veraticus/spice-rules/internal/ruleio"
	"github.com/Veraticus/spice-rules/internal/storage"
	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// initStorage opens the rule database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(appConfig.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initRepository opens storage and wraps it in a repository. The returned
// func closes the store.
func initRepository(ctx context.Context) (*repository.Repository, func(), error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	repo := repository.New(store,
		repository.WithCache(cache.New(appConfig.CacheTTL)),
		repository.WithLogger(slog.Default()),
		repository.WithRetryOptions(appConfig.Retry()),
	)

	closeFn := func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}
	return repo, closeFn, nil
}

func newRenderer(cmd *cobra.Command) *cli.Renderer {
	if plain {
		return cli.NewPlainRenderer(cmd.OutOrStdout())
	}
	return cli.NewRenderer(cmd.OutOrStdout())
}

func newEngine(rules []model.AutoRule) *engine.RuleEngine {
	return engine.New(rules,
		engine.WithMemoization(appConfig.Memoize),
		engine.WithLogger(slog.Default()),
	)
}

// scopeFlag returns --marketplace, or the configured default scope.
func scopeFlag(cmd *cobra.Command) string {
	if m, _ := cmd.Flags().GetString("marketplace"); m != "" {
		return model.NormalizeScope(m)
	}
	return appConfig.DefaultMarketplace
}

// loadRules picks the rules a classification runs with: the given ids only,
// or every rule in scope.
func loadRules(ctx context.Context, repo *repository.Repository, scope string, ids []string) ([]model.AutoRule, error) {
	if len(ids) > 0 {
		rules, err := repo.RulesByID(ctx, ids)
		if err != nil {
			return nil, common.NewUserError("unknown rule", err)
		}
		return rules, nil
	}
	return repo.Rules(ctx, scope)
}

// readPayments loads the payments of a JSON, YAML, CSV or OFX file.
func readPayments(ctx context.Context, path string) ([]model.PaymentInput, error) {
	f, err := ingest.Open(path)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("cannot open %s", path), err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close payments file", "path", path, "error", closeErr)
		}
	}()

	payments, err := f.ReadPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read payments from %s: %w", path, err)
	}
	if len(payments) == 0 {
		return nil, common.NewUserError(fmt.Sprintf("%s has no payments", path), common.ErrNoPayments)
	}

	slog.Debug("Payments loaded", "path", path, "count", len(payments))
	return payments, nil
}

// readDraft loads a single rule from a JSON or YAML file.
func readDraft(path string) (model.RuleDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RuleDraft{}, common.NewUserError(fmt.Sprintf("cannot read %s", path), err)
	}
	draft, err := ruleio.DecodeDraft(data, ruleio.FormatFromPath(path))
	if err != nil {
		return model.RuleDraft{}, common.NewUserError(fmt.Sprintf("cannot parse %s", path), err)
	}
	return draft, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func checkOutputFormat(format string) error {
	if format != outputTable && format != outputJSON {
		return common.NewUserError(fmt.Sprintf("unknown format %q (use table or json)", format), common.ErrInvalidConfig)
	}
	return nil
}
