package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

// InterruptedMessage is recorded on downloads that were still running when the
// previous process exited.
const InterruptedMessage = "interrupted: the server stopped before the download finished"

// filterColumns are the columns FindAll accepts as filters
var filterColumns = map[string]bool{"stage": true, "kind": true, "format": true, "url": true, "title": true}

// SQLiteDownloadRepository implements DownloadRepository using SQLite
type SQLiteDownloadRepository struct {
	db *gorm.DB
}

// NewSQLiteDownloadRepository creates a new SQLite repository
func NewSQLiteDownloadRepository(dbPath string) (*SQLiteDownloadRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Download{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteDownloadRepository{db: db}, nil
}

// Create creates a new download
func (r *SQLiteDownloadRepository) Create(download *domain.Download) error {
	return r.db.Create(download).Error
}

// Update updates an existing download
func (r *SQLiteDownloadRepository) Update(download *domain.Download) error {
	return r.db.Save(download).Error
}

// FindByID finds a download by ID
func (r *SQLiteDownloadRepository) FindByID(id string) (*domain.Download, error) {
	var download domain.Download
	err := r.db.First(&download, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("download %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &download, nil
}

// FindAll finds all downloads with optional filters, newest first
func (r *SQLiteDownloadRepository) FindAll(filters map[string]interface{}) ([]*domain.Download, error) {
	var downloads []*domain.Download
	query := r.db

	for key, value := range filters {
		if !filterColumns[key] {
			return nil, fmt.Errorf("%w: cannot filter on %q", domain.ErrInvalidRequest, key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&downloads).Error
	return downloads, err
}

// MarkInterrupted fails every download left in a non-terminal stage
func (r *SQLiteDownloadRepository) MarkInterrupted() (int64, error) {
	now := time.Now()
	result := r.db.Model(&domain.Download{}).
		Where("stage NOT IN ?", []domain.Stage{domain.StageDone, domain.StageFailed}).
		Updates(map[string]interface{}{
			"stage":         domain.StageFailed,
			"error_message": InterruptedMessage,
			"completed_at":  now,
			"updated_at":    now,
		})
	return result.RowsAffected, result.Error
}

// GetStats returns download statistics
func (r *SQLiteDownloadRepository) GetStats() (*domain.DownloadStats, error) {
	stats := &domain.DownloadStats{}

	stageCounts := []struct {
		Stage domain.Stage
		Count int64
	}{}

	if err := r.db.Model(&domain.Download{}).
		Select("stage, count(*) as count").
		Group("stage").
		Scan(&stageCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range stageCounts {
		stats.Total += sc.Count
		switch sc.Stage {
		case domain.StageDone:
			stats.Done = sc.Count
		case domain.StageFailed:
			stats.Failed = sc.Count
		default:
			stats.InProgress += sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteDownloadRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
