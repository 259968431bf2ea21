package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kontext-run/kontext-core/pkg/config"
	"github.com/kontext-run/kontext-core/pkg/storage"
	"github.com/kontext-run/kontext-core/pkg/tiers"
	"github.com/kontext-run/kontext-core/pkg/verify"
)

var cliLogger = slog.Default().With("component", "cli")

// openStore wires a FileAdapter rooted at KONTEXT_DATA_DIR and restores the
// prior session's chain and store from it, or cold-starts empty if this is
// the first run.
func openStore(ctx context.Context) (*verify.Context, storage.Adapter, error) {
	cfg := config.Load()
	adapter, err := storage.NewFileAdapter(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open data dir %s: %w", cfg.DataDir, err)
	}
	vc, err := verify.Restore(ctx, verify.Options{}, adapter)
	if err != nil {
		return nil, nil, fmt.Errorf("restore: %w", err)
	}
	return vc, adapter, nil
}

// closeStore flushes the current session back to disk. Persist failures
// are best-effort per spec: logged, never rolling back in-memory state or
// failing the command that already succeeded.
func closeStore(ctx context.Context, vc *verify.Context, adapter storage.Adapter) {
	if err := verify.Persist(ctx, vc, adapter); err != nil {
		cliLogger.Warn("persist failed", "error", err)
	}
}

func parseTier(s string) (tiers.TierID, error) {
	if s == "" {
		return tiers.TierFree, nil
	}
	t := tiers.TierID(s)
	if _, ok := tiers.AllTiers[t]; !ok {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}
