package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/tikdown-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// filterColumns lists the columns FindAll accepts as filter keys
var filterColumns = map[string]bool{
	"status":         true,
	"video_id":       true,
	"share_url":      true,
	"failure_reason": true,
}

// SQLiteRecordRepository implements RecordRepository using SQLite
type SQLiteRecordRepository struct {
	db *gorm.DB
}

// NewSQLiteRecordRepository creates a new SQLite repository
func NewSQLiteRecordRepository(dbPath string) (*SQLiteRecordRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRecordRepository{db: db}, nil
}

// Create creates a new record
func (r *SQLiteRecordRepository) Create(record *domain.Record) error {
	return r.db.Create(record).Error
}

// Update updates an existing record
func (r *SQLiteRecordRepository) Update(record *domain.Record) error {
	return r.db.Save(record).Error
}

// Delete deletes a record by ID
func (r *SQLiteRecordRepository) Delete(id string) error {
	return r.db.Delete(&domain.Record{}, "id = ?", id).Error
}

// FindByID finds a record by ID. It returns nil when none exists.
func (r *SQLiteRecordRepository) FindByID(id string) (*domain.Record, error) {
	var record domain.Record
	err := r.db.First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindAll finds all records with optional filters
func (r *SQLiteRecordRepository) FindAll(filters map[string]interface{}) ([]*domain.Record, error) {
	var records []*domain.Record
	query := r.db

	for key, value := range filters {
		if !filterColumns[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

// GetStats returns record statistics
func (r *SQLiteRecordRepository) GetStats() (*domain.RecordStats, error) {
	stats := &domain.RecordStats{}

	if err := r.db.Model(&domain.Record{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.RecordStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.Record{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusResolving:
			stats.Resolving = sc.Count
		case domain.StatusResolved:
			stats.Resolved = sc.Count
		case domain.StatusDownloading:
			stats.Downloading = sc.Count
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		case domain.StatusCancelled:
			stats.Cancelled = sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteRecordRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
