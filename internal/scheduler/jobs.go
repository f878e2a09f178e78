// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Job names.
const (
	JobEventRetention = "event-retention"
	JobGeoIPReload    = "geoip-reload"
)

// EventPruner deletes audit events older than a cutoff.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Reloader reopens a file-backed resource.
type Reloader interface {
	Reload() error
}

// EventRetentionJob prunes the event log daily. Non-positive days disables
// pruning and the job is a no-op.
func EventRetentionJob(events EventPruner, days int) Job {
	return Job{
		Name:        JobEventRetention,
		Description: "Delete audit events past the retention window",
		Schedule:    "@daily",
		Run: func(ctx context.Context) error {
			if days <= 0 {
				return nil
			}
			n, err := events.DeleteOldEvents(ctx, time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			if n > 0 {
				slog.Info("pruned old events", "deleted", n, "retention_days", days)
			}
			return nil
		},
	}
}

// GeoIPReloadJob reopens the GeoIP database weekly so a replaced file is
// picked up without a restart.
func GeoIPReloadJob(lookup Reloader) Job {
	return Job{
		Name:        JobGeoIPReload,
		Description: "Reload the GeoIP country database",
		Schedule:    "@weekly",
		Run: func(context.Context) error {
			return lookup.Reload()
		},
	}
}
