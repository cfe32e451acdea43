package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jo-hoe/imagehost/internal/backend/database"
	"github.com/jo-hoe/imagehost/internal/blobstore"
	"golang.org/x/sync/errgroup"
)

// ReconcileReport lists what a reconcile run found between the blob store and
// the metadata records.
type ReconcileReport struct {
	// OrphanedBlobs are files no record points to and that are older than the
	// grace period. The original of an updated image counts as referenced.
	OrphanedBlobs []string
	Removed       []string
	// MissingBlobs are ids of records whose file is gone; records are never deleted.
	MissingBlobs []string
	// Skipped counts unreferenced files still inside the grace period.
	Skipped int
}

// Reconcile removes unreferenced blobs older than the configured grace period.
// With dryRun set it only reports them.
func (service *ImageService) Reconcile(ctx context.Context, dryRun bool) (*ReconcileReport, error) {
	var (
		blobs   []blobstore.FileInfo
		records []*database.ImageRecord
	)
	group, _ := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		blobs, err = service.blobStore.List()
		return err
	})
	group.Go(func() (err error) {
		records, err = service.databaseService.GetImages()
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("failed to collect reconcile state: %w", err)
	}

	// An updated record still owns the original it was rendered from, so
	// direct links to the upload keep resolving.
	referenced := make(map[string]bool, 2*len(records))
	for _, record := range records {
		referenced[record.Filename] = true
		if original, ok := strings.CutPrefix(record.Filename, updatedPrefix); ok {
			referenced[original] = true
		}
	}

	report := &ReconcileReport{}
	cutoff := service.now().Add(-service.config.Reconcile.GracePeriod)
	present := make(map[string]bool, len(blobs))
	for _, blob := range blobs {
		present[blob.Name] = true
		if referenced[blob.Name] {
			continue
		}
		if blob.ModTime.After(cutoff) {
			report.Skipped++
			continue
		}
		report.OrphanedBlobs = append(report.OrphanedBlobs, blob.Name)
	}

	for _, record := range records {
		if !present[record.Filename] {
			report.MissingBlobs = append(report.MissingBlobs, record.ID)
			slog.Warn("image record without blob", "id", record.ID, "filename", record.Filename)
		}
	}

	if dryRun {
		return report, nil
	}
	for _, name := range report.OrphanedBlobs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := service.blobStore.Delete(name); err != nil {
			return report, fmt.Errorf("failed to remove orphaned blob %s: %w", name, err)
		}
		report.Removed = append(report.Removed, name)
		slog.Info("removed orphaned blob", "filename", name)
	}
	return report, nil
}

// RunReconcileLoop reconciles every interval until ctx is done.
func (service *ImageService) RunReconcileLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := service.Reconcile(ctx, false)
			if err != nil {
				slog.Error("reconcile run failed", "error", err)
				continue
			}
			slog.Info("reconcile run completed",
				"removed", len(report.Removed),
				"missing_blobs", len(report.MissingBlobs),
				"skipped", report.Skipped)
		}
	}
}
