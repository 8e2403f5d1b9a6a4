// Package store is the gorm-backed persistence layer for the document
// registry and the chunk store.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"docq/internal/domain"
)

func datatypesJSON(m map[string]any) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(m)
}

// Open connects to Postgres and runs migrations.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.AutoMigrate(&domain.Document{}, &domain.DocumentChunk{}); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// Store implements domain.DocumentStore and domain.ChunkStore. Each
// method runs in a short-lived operation; no transaction is held across
// calls into external capabilities.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Create(ctx context.Context, doc *domain.Document) error {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(doc).Error
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) List(ctx context.Context, opts domain.ListOptions) ([]domain.Document, int64, error) {
	query := s.db.WithContext(ctx).Model(&domain.Document{}).
		Where("is_active = ?", true).
		Where("session_id = ?", opts.SessionID).
		Where("session_expires_at > ?", time.Now().UTC())
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	var docs []domain.Document
	if err := query.Order("uploaded_at DESC").Offset(opts.Offset).Limit(limit).Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (s *Store) Visible(ctx context.Context, sessionID string, now time.Time) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Where("is_active = ?", true).
		Where("status = ?", domain.StatusIndexed).
		Where("session_expires_at > ?", now).
		Find(&docs).Error
	return docs, err
}

func (s *Store) SetStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	return s.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *Store) MarkProcessed(ctx context.Context, id string, text string, metadata map[string]any, confidence map[string]any, seconds int) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          domain.StatusProcessed,
			"extracted_text":  text,
			"metadata":        datatypesJSON(metadata),
			"ocr_confidence":  datatypesJSON(confidence),
			"processing_time": seconds,
			"processed_at":    &now,
		}).Error
}

func (s *Store) MarkError(ctx context.Context, id string, reason string) error {
	return s.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":   domain.StatusError,
			"metadata": datatypesJSON(map[string]any{"error": reason}),
		}).Error
}

func (s *Store) Deactivate(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (s *Store) Expired(ctx context.Context, now time.Time) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("session_expires_at <= ?", now).
		Find(&docs).Error
	return docs, err
}

func (s *Store) ActiveDocumentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&domain.Document{}).
		Where("is_active = ?", true).
		Pluck("id", &ids).Error
	return ids, err
}

// Replace swaps the document's chunk set inside one transaction.
func (s *Store) Replace(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&domain.DocumentChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.Create(&chunks).Error
	})
}

func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	return s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&domain.DocumentChunk{}).Error
}

func (s *Store) DocumentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&domain.DocumentChunk{}).
		Distinct("document_id").
		Pluck("document_id", &ids).Error
	return ids, err
}

// Ping verifies database connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
