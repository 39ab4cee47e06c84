package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/university-explorer/model"
	"github.com/sahilchouksey/university-explorer/services"
)

// RefreshDataset re-imports the dataset from the configured sources. Swipes
// and matches survive for institutions still present in the new data.
func (m *CronManager) RefreshDataset(ctx context.Context) (string, string, error) {
	if m.importer == nil {
		return "", "", errors.New("no importer configured")
	}

	summary, err := m.importer.Run(ctx, services.ImportOptions{
		PrimarySource:   m.cfg.PrimarySource,
		SecondarySource: m.cfg.SecondarySource,
	})
	if err != nil {
		return "", "", fmt.Errorf("dataset import failed: %w", err)
	}

	metadata, err := json.Marshal(summary)
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("Imported %d institutions (%d matched secondary rows)", summary.InstitutionCount, summary.MatchedRows), string(metadata), nil
}

// DatasetSnapshot records the current dataset statistics and match activity
// in the job log
func (m *CronManager) DatasetSnapshot(ctx context.Context) (string, string, error) {
	if m.stats == nil {
		return "", "", errors.New("no stats source configured")
	}

	stats, err := m.stats.GetStats(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to compute stats: %w", err)
	}

	var swipes, matches int64
	since := time.Now().Add(-time.Hour)
	if err := m.db.WithContext(ctx).Model(&model.Swipe{}).Where("created_at >= ?", since).Count(&swipes).Error; err != nil {
		return "", "", fmt.Errorf("failed to count swipes: %w", err)
	}
	if err := m.db.WithContext(ctx).Model(&model.Match{}).Count(&matches).Error; err != nil {
		return "", "", fmt.Errorf("failed to count matches: %w", err)
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"stats":              stats,
		"swipes_last_hour":   swipes,
		"matches_total":      matches,
		"snapshot_timestamp": time.Now().UTC(),
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("%d institutions, %d swipes in the last hour, %d matches", stats.TotalUniversities, swipes, matches), string(metadata), nil
}

// CleanupOldData removes cron job logs older than 90 days
func (m *CronManager) CleanupOldData(ctx context.Context) (string, string, error) {
	cutoffLogs := time.Now().Add(-90 * 24 * time.Hour)
	result := m.db.WithContext(ctx).Where("created_at < ?", cutoffLogs).Delete(&model.CronJobLog{})
	if result.Error != nil {
		return "", "", fmt.Errorf("failed to clean cron logs: %w", result.Error)
	}
	log.Infof("[CRON] Cleaned %d old cron logs", result.RowsAffected)
	return fmt.Sprintf("Cleaned %d old cron logs", result.RowsAffected), "", nil
}
