// Package storage persists analysis history in a local SQLite database.
// The prediction core itself never touches persistence; only the
// transport layer records outcomes here.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"plantdoc-server-go/internal/domain/capability"
	"plantdoc-server-go/internal/domain/features"
	"plantdoc-server-go/internal/platform/errors"
)

// AnalysisRecord is one finished prediction, as stored.
type AnalysisRecord struct {
	ID          uint            `gorm:"primaryKey"                         json:"id"`
	Filename    string          `gorm:"type:varchar(255);not null"         json:"filename"`
	StoredName  string          `gorm:"type:varchar(255);uniqueIndex"      json:"stored_name"`
	Fingerprint string          `gorm:"type:varchar(64);index"             json:"fingerprint"`
	Label       string          `gorm:"not null"                           json:"label"`
	Confidence  int             `gorm:"not null"                           json:"confidence"`
	Tier        capability.Tier `gorm:"type:varchar(16);not null"          json:"tier"`
	Healthy     bool            `                                          json:"healthy"`
	Features    datatypes.JSON  `                                          json:"features,omitempty"`
	CreatedAt   time.Time       `gorm:"index"                              json:"created_at"`
}

// Open initializes the SQLite database at dir/file and migrates the schema.
func Open(dir, file string) (*gorm.DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "create data directory", err)
	}

	dbPath := filepath.Join(dir, file)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "open database", err)
	}

	if err := db.AutoMigrate(&AnalysisRecord{}); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "migrate schema", err)
	}

	return db, nil
}

// HistoryRepository reads and writes analysis records.
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Save persists one analysis. The features snapshot is optional.
func (r *HistoryRepository) Save(record *AnalysisRecord, f *features.Features) error {
	if f != nil {
		raw, err := json.Marshal(f)
		if err != nil {
			return errors.Wrap(errors.KindStorage, "history.save", "encode features", err)
		}
		record.Features = datatypes.JSON(raw)
	}
	if err := r.db.Create(record).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "history.save", "insert record", err)
	}
	return nil
}

// Recent returns up to limit analyses, newest first.
func (r *HistoryRepository) Recent(limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []AnalysisRecord
	err := r.db.Order("created_at DESC, id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "history.recent", "query records", err)
	}
	return records, nil
}

// Count returns the total number of stored analyses.
func (r *HistoryRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&AnalysisRecord{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(errors.KindStorage, "history.count", "count records", err)
	}
	return count, nil
}
