// Package sweeper runs the background purge of orphaned wrapped-key
// entries. The inline purge on participant removal covers the common case;
// the sweeper exists for crash windows where the removal committed but the
// purge did not.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"chatkeys/pkg/config"
	"chatkeys/pkg/encryption"
	"chatkeys/pkg/logger"
	"chatkeys/pkg/models"
	"chatkeys/pkg/store"
)

// Start launches the sweep scheduler if enabled. Returns a cancel func.
// Cron takes precedence over Interval when both are set.
func Start(ctx context.Context, cfg config.SweeperConfig) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("sweeper_disabled")
		return func() {}, nil
	}

	ctx2, cancel := context.WithCancel(ctx)

	if cfg.Cron != "" {
		if !gronx.IsValid(cfg.Cron) {
			cancel()
			return nil, fmt.Errorf("invalid sweeper cron expression: %s", cfg.Cron)
		}
		logger.Info("sweeper_enabled", "cron", cfg.Cron, "dry_run", cfg.DryRun)
		go runCron(ctx2, cfg)
		return cancel, nil
	}

	interval := cfg.Interval.Duration()
	if interval <= 0 {
		interval = time.Hour
	}
	logger.Info("sweeper_enabled", "interval", interval, "dry_run", cfg.DryRun)
	go runTicker(ctx2, cfg, interval)
	return cancel, nil
}

func runCron(ctx context.Context, cfg config.SweeperConfig) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cfg.Cron, now, false)
		if err != nil {
			logger.Error("sweeper_nexttick_failed", "cron", cfg.Cron, "err", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if _, err := RunOnce(cfg); err != nil {
				logger.Error("sweeper_run_error", "err", err)
			}
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		}
	}
}

func runTicker(ctx context.Context, cfg config.SweeperConfig, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if _, err := RunOnce(cfg); err != nil {
				logger.Error("sweeper_run_error", "err", err)
			}
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		}
	}
}

// RunOnce scans every room and purges wrapped-key entries whose owner is no
// longer a member. Returns the number of entries purged (or that would be
// purged under dry run). BatchSize caps the rooms touched per run so a
// large store does not monopolize the db.
func RunOnce(cfg config.SweeperConfig) (int, error) {
	rooms, err := store.ListRooms()
	if err != nil {
		return 0, err
	}
	purged := 0
	scanned := 0
	for _, room := range rooms {
		if cfg.BatchSize > 0 && scanned >= cfg.BatchSize {
			break
		}
		scanned++
		if cfg.DryRun {
			n, err := countOrphans(room)
			if err != nil {
				logger.Error("sweeper_room_failed", "room", room.ID, "err", err)
				continue
			}
			purged += n
			if n > 0 {
				logger.Info("sweeper_would_purge", "room", room.ID, "count", n)
			}
			continue
		}
		n, err := encryption.PurgeOrphanedKeys(room.ID)
		if err != nil {
			logger.Error("sweeper_room_failed", "room", room.ID, "err", err)
			continue
		}
		purged += n
		if n > 0 {
			logger.Info("sweeper_purged", "room", room.ID, "count", n)
		}
	}
	logger.Info("sweeper_run_complete", "rooms_scanned", scanned, "entries_purged", purged, "dry_run", cfg.DryRun)
	return purged, nil
}

func countOrphans(room models.Room) (int, error) {
	entries, err := store.ListRoomKeyEntries(room.ID)
	if err != nil {
		return 0, err
	}
	return len(encryption.OrphanedEntries(room, entries)), nil
}
