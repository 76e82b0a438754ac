package core

// reconciler.go finds artifacts left without a manifest. The uploader deletes
// such artifacts itself, but a failed compensating delete (or a crash between
// the two writes) leaves one behind. The job lists artifacts on a ticker and
// reports, and optionally deletes, those older than a grace period whose
// manifest sibling is missing.

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// ReconcileConfig holds configuration for the orphan reconciler.
type ReconcileConfig struct {
	Interval      time.Duration // How often to run (default: 1h)
	GracePeriod   time.Duration // Artifacts younger than this are skipped (default: 15m)
	DeleteOrphans bool          // Delete orphans instead of only reporting them
	Prefixes      []string      // Key prefixes to scan, usually tenant ids; empty scans everything
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Scanned int      `json:"scanned"`
	Orphans []string `json:"orphans"`
	Deleted int      `json:"deleted"`
}

// StartReconciler runs Reconcile immediately and then every Interval until
// ctx is cancelled.
func (s *Service) StartReconciler(ctx context.Context, cfg ReconcileConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	slog.Info("reconciler started",
		"interval", cfg.Interval,
		"grace_period", cfg.GracePeriod,
		"delete_orphans", cfg.DeleteOrphans,
	)

	s.runReconcile(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reconciler stopped")
			return
		case <-ticker.C:
			s.runReconcile(ctx, cfg)
		}
	}
}

func (s *Service) runReconcile(ctx context.Context, cfg ReconcileConfig) {
	start := time.Now()
	report, err := s.Reconcile(ctx, cfg)
	if err != nil {
		slog.Error("reconcile failed", "error", err)
		return
	}
	slog.Info("reconcile completed",
		"scanned", report.Scanned,
		"orphans", len(report.Orphans),
		"deleted", report.Deleted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Reconcile performs one pass over the configured prefixes.
func (s *Service) Reconcile(ctx context.Context, cfg ReconcileConfig) (ReconcileReport, error) {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 15 * time.Minute
	}
	prefixes := cfg.Prefixes
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	cutoff := s.now().Add(-cfg.GracePeriod)

	report := ReconcileReport{Orphans: []string{}}
	for _, prefix := range prefixes {
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		objs, err := s.blobs.List(ctx, prefix)
		if err != nil {
			return report, err
		}

		keys := make(map[string]bool, len(objs))
		for _, o := range objs {
			keys[o.Key] = true
		}

		for _, o := range objs {
			if !IsArtifactPath(o.Key) {
				continue
			}
			report.Scanned++
			if keys[ManifestPath(o.Key)] || o.LastModified.After(cutoff) {
				continue
			}
			report.Orphans = append(report.Orphans, o.Key)
			slog.Warn("orphan artifact", "artifact", o.Key, "age", s.now().Sub(o.LastModified).Round(time.Second))

			if !cfg.DeleteOrphans {
				continue
			}
			err := withDeadline(ctx, "orphan_delete", s.timeouts.Delete, func(ctx context.Context) error {
				_, err := s.blobs.Delete(ctx, o.Key)
				return err
			})
			if err != nil {
				slog.Error("orphan delete failed", "artifact", o.Key, "error", err)
				continue
			}
			report.Deleted++
		}
	}

	if n := len(report.Orphans); n > 0 {
		s.recorder.OrphansFound(n)
	}
	return report, nil
}
