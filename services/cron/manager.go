package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/university-explorer/model"
	"github.com/sahilchouksey/university-explorer/services"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	jobRefreshDataset  = "refresh_dataset"
	jobDatasetSnapshot = "dataset_snapshot"
	jobCleanupOldData  = "cleanup_old_data"
)

// DatasetImporter runs a full dataset import; services.ImportService implements it
type DatasetImporter interface {
	Run(ctx context.Context, opts services.ImportOptions) (*services.ImportSummary, error)
}

// StatsSource provides dataset statistics; database.Storage implements it
type StatsSource interface {
	GetStats(ctx context.Context) (*model.InstitutionStats, error)
}

// Config selects the optional jobs
type Config struct {
	// ImportSchedule is a cron spec with seconds; empty disables refresh_dataset
	ImportSchedule  string
	PrimarySource   string
	SecondarySource string
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron     *cron.Cron
	db       *gorm.DB
	importer DatasetImporter
	stats    StatsSource
	cfg      Config
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, importer DatasetImporter, stats StatsSource, cfg Config) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:     c,
		db:       db,
		importer: importer,
		stats:    stats,
		cfg:      cfg,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Info("Starting cron jobs...")

	// Register all jobs
	if err := m.registerJobs(); err != nil {
		return err
	}

	// Start the cron scheduler
	m.cron.Start()

	log.Info("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs and waits for running ones
func (m *CronManager) Stop() {
	log.Info("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Info("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// 1. Configured schedule: re-import the dataset from its sources
	if m.cfg.ImportSchedule != "" {
		if m.importer == nil || m.cfg.PrimarySource == "" {
			log.Warn("IMPORT_SCHEDULE set without an import source, skipping refresh_dataset")
		} else {
			if _, err := m.cron.AddFunc(m.cfg.ImportSchedule, func() {
				m.runJob(jobRefreshDataset, 30*time.Minute, m.RefreshDataset)
			}); err != nil {
				return fmt.Errorf("invalid IMPORT_SCHEDULE %q: %w", m.cfg.ImportSchedule, err)
			}
		}
	}

	// 2. Every hour: record dataset statistics
	if _, err := m.cron.AddFunc("0 0 * * * *", func() {
		m.runJob(jobDatasetSnapshot, time.Minute, m.DatasetSnapshot)
	}); err != nil {
		return err
	}

	// 3. Daily at 2 AM: cleanup old job logs
	if _, err := m.cron.AddFunc("0 0 2 * * *", func() {
		m.runJob(jobCleanupOldData, 10*time.Minute, m.CleanupOldData)
	}); err != nil {
		return err
	}

	log.Infof("All cron jobs registered successfully (%d entries)", len(m.cron.Entries()))
	return nil
}

// jobFunc returns a completion message and optional JSON metadata
type jobFunc func(ctx context.Context) (message string, metadata string, err error)

// runJob executes fn under a timeout and records it in cron_job_logs
func (m *CronManager) runJob(jobName string, timeout time.Duration, fn jobFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entry := m.logJobStart(jobName)
	message, metadata, err := fn(ctx)
	if err != nil {
		m.logJobError(entry, err)
		return
	}
	m.logJobComplete(entry, message, metadata)
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	log.Infof("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	cronLog := &model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: time.Now(),
		Metadata:  datatypes.JSON("{}"),
	}
	if err := m.db.Create(cronLog).Error; err != nil {
		log.Warnw("Failed to record cron job start", "job", jobName, "error", err)
	}
	return cronLog
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(entry *model.CronJobLog, message, metadata string) {
	log.Infof("[CRON] Completed job: %s - %s", entry.JobName, message)

	now := time.Now()
	updates := map[string]interface{}{
		"status":       "completed",
		"completed_at": now,
		"duration":     int(now.Sub(entry.StartedAt).Milliseconds()),
		"message":      message,
	}
	if metadata != "" {
		updates["metadata"] = datatypes.JSON(metadata)
	}
	m.updateLog(entry, updates)
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(entry *model.CronJobLog, err error) {
	log.Errorw("[CRON] Job failed", "job", entry.JobName, "error", err)

	now := time.Now()
	m.updateLog(entry, map[string]interface{}{
		"status":       "failed",
		"completed_at": now,
		"duration":     int(now.Sub(entry.StartedAt).Milliseconds()),
		"error_msg":    err.Error(),
	})
}

func (m *CronManager) updateLog(entry *model.CronJobLog, updates map[string]interface{}) {
	if entry.ID == 0 {
		return
	}
	if err := m.db.Model(&model.CronJobLog{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
		log.Warnw("Failed to update cron job log", "job", entry.JobName, "error", err)
	}
}
