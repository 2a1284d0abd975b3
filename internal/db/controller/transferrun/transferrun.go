// Package transferrun provides CRUD operations for persisted migration runs.
package transferrun

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/db/models"
	"github.com/stoatbridge/stoatbridge/internal/transfer"
)

var (
	// ErrRunNotFound is returned when a run is not found.
	ErrRunNotFound = errors.New("transfer run not found")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Start records a freshly started run and returns it.
func Start(db *gorm.DB, userID uint64, guildID, serverName, mode string) (*models.TransferRun, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	run := &models.TransferRun{
		UserID:     userID,
		GuildID:    guildID,
		ServerName: serverName,
		Mode:       mode,
		Status:     models.RunStatusRunning,
		StartedAt:  time.Now(),
	}

	if result := db.Create(run); result.Error != nil {
		return nil, result.Error
	}

	return run, nil
}

// Finish stores the outcome of a run. The report is persisted as JSON; a
// non-nil runErr marks the run as failed.
func Finish(db *gorm.DB, id uint64, report *transfer.Report, runErr error) error {
	if db == nil {
		return ErrDBNil
	}

	var run models.TransferRun
	if result := db.First(&run, id); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrRunNotFound
		}

		return result.Error
	}

	now := time.Now()
	run.FinishedAt = &now

	switch {
	case runErr != nil:
		run.Status = models.RunStatusFailed
		run.Error = runErr.Error()
	case report != nil && report.Aborted:
		run.Status = models.RunStatusAborted
	default:
		run.Status = models.RunStatusDone
	}

	if report != nil {
		run.ServerID = report.ServerID

		data, err := json.Marshal(report)
		if err != nil {
			return err
		}

		run.Report = data
	}

	if result := db.Save(&run); result.Error != nil {
		return result.Error
	}

	return nil
}

// Get retrieves one run by ID.
func Get(db *gorm.DB, id uint64) (*models.TransferRun, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var run models.TransferRun
	if result := db.First(&run, id); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}

		return nil, result.Error
	}

	return &run, nil
}

// History lists runs newest first.
func History(db *gorm.DB, limit int) ([]models.TransferRun, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if limit <= 0 {
		limit = 50
	}

	var runs []models.TransferRun
	if result := db.Order("started_at DESC").Limit(limit).Find(&runs); result.Error != nil {
		return nil, result.Error
	}

	return runs, nil
}

// Report decodes the stored step report of a run, or nil when the run never
// produced one.
func Report(run *models.TransferRun) (*transfer.Report, error) {
	if len(run.Report) == 0 {
		return nil, nil
	}

	var report transfer.Report
	if err := json.Unmarshal(run.Report, &report); err != nil {
		return nil, err
	}

	return &report, nil
}
