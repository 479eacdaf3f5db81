package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"bounty-board/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PostgresStore keeps each collection as a jsonb row in record_collections.
// The version column is the compare-and-swap token.
type PostgresStore struct {
	DB *gorm.DB
}

// OpenPostgres connects with the given DSN and migrates record_collections.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewPostgresStore(db)
}

// NewPostgresStore wraps an existing gorm handle.
func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&models.CollectionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) ReadAll(ctx context.Context, collection string) (Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return Snapshot{}, err
	}

	var row models.CollectionRow
	if err := s.DB.WithContext(ctx).First(&row, "name = ?", collection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Snapshot{}, nil
		}
		return Snapshot{}, unavailable("read "+collection, err)
	}

	records, err := unmarshalPayload([]byte(row.Payload))
	if err != nil {
		return Snapshot{}, unavailable("decode "+collection, err)
	}
	return Snapshot{Records: records, Version: Version(strconv.FormatInt(row.Version, 10))}, nil
}

func (s *PostgresStore) WriteAll(ctx context.Context, collection string, records []json.RawMessage, expected Version) (Version, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	payload, err := marshalPayload(records)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", collection, err)
	}

	db := s.DB.WithContext(ctx)

	// First write of a collection: insert, losing to any concurrent creator.
	if expected == "" {
		row := models.CollectionRow{Name: collection, Version: 1, Payload: string(payload)}
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if result.Error != nil {
			return "", unavailable("insert "+collection, result.Error)
		}
		if result.RowsAffected == 0 {
			return "", ErrConflict
		}
		return "1", nil
	}

	current, err := strconv.ParseInt(string(expected), 10, 64)
	if err != nil {
		return "", ErrConflict
	}
	result := db.Model(&models.CollectionRow{}).
		Where("name = ? AND version = ?", collection, current).
		Updates(map[string]interface{}{
			"version": current + 1,
			"payload": string(payload),
		})
	if result.Error != nil {
		return "", unavailable("update "+collection, result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrConflict
	}
	return Version(strconv.FormatInt(current+1, 10)), nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
