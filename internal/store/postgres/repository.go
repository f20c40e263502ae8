// Package postgres implements store.Repository on PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/store"
)

// Repository persists rows in PostgreSQL
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ store.Repository = (*Repository)(nil)

// gormWriter routes gorm's logger through ours.
type gormWriter struct {
	log logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warnf(format, args...)
}

// Open connects to dsn and migrates the schema.
func Open(dsn string, log logger.Logger) (*Repository, error) {
	gormLog := gormlogger.New(gormWriter{log: log}, gormlogger.Config{
		SlowThreshold:             300 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return New(db), nil
}

// New wraps an existing connection.
func New(db *gorm.DB) *Repository {
	return &Repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&collectionModel{}, &bookmarkModel{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

// ─────────────────────────────────────────────────────────────────
// Bookmarks
// ─────────────────────────────────────────────────────────────────

func (r *Repository) ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	var rows []bookmarkModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	out := make([]domain.Bookmark, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *Repository) GetBookmark(ctx context.Context, userID, id string) (domain.Bookmark, error) {
	row, err := r.takeBookmark(r.db.WithContext(ctx), userID, id)
	if err != nil {
		return domain.Bookmark{}, err
	}
	return row.toDomain(), nil
}

func (r *Repository) takeBookmark(tx *gorm.DB, userID, id string) (bookmarkModel, error) {
	if _, err := uuid.Parse(id); err != nil {
		return bookmarkModel{}, domain.ErrNotFound
	}
	var row bookmarkModel
	if err := tx.Where("id = ? AND user_id = ?", id, userID).Take(&row).Error; err != nil {
		return bookmarkModel{}, notFound(err)
	}
	return row, nil
}

func (r *Repository) CreateBookmark(ctx context.Context, userID string, in domain.BookmarkInput) (domain.Bookmark, error) {
	now := r.now()
	row := bookmarkModel{
		ID:           uuid.NewString(),
		UserID:       userID,
		CollectionID: in.CollectionID,
		Title:        in.Title,
		URL:          in.URL,
		Description:  in.Description,
		FaviconURL:   in.FaviconURL,
		OGImageURL:   in.OGImageURL,
		Tags:         pq.StringArray(nonNil(in.Tags)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCollection(tx, userID, in.CollectionID); err != nil {
			return err
		}
		return tx.Omit("Collection").Create(&row).Error
	})
	if err != nil {
		return domain.Bookmark{}, wrap("create bookmark", err)
	}
	return row.toDomain(), nil
}

func (r *Repository) UpdateBookmark(ctx context.Context, userID, id string, in domain.BookmarkInput) (domain.Bookmark, error) {
	var out bookmarkModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := r.takeBookmark(tx, userID, id)
		if err != nil {
			return err
		}
		if err := checkCollection(tx, userID, in.CollectionID); err != nil {
			return err
		}

		err = tx.Model(&bookmarkModel{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(map[string]interface{}{
				"title":         in.Title,
				"url":           in.URL,
				"description":   in.Description,
				"collection_id": in.CollectionID,
				"tags":          pq.StringArray(nonNil(in.Tags)),
				"updated_at":    r.now(),
			}).Error
		if err != nil {
			return err
		}

		out, err = r.takeBookmark(tx, userID, row.ID)
		return err
	})
	if err != nil {
		return domain.Bookmark{}, wrap("update bookmark", err)
	}
	return out.toDomain(), nil
}

func (r *Repository) SetFavorite(ctx context.Context, userID, id string, favorite bool) (domain.Bookmark, error) {
	var out bookmarkModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := uuid.Parse(id); err != nil {
			return domain.ErrNotFound
		}
		res := tx.Model(&bookmarkModel{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(map[string]interface{}{
				"is_favorite": favorite,
				"updated_at":  r.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		var err error
		out, err = r.takeBookmark(tx, userID, id)
		return err
	})
	if err != nil {
		return domain.Bookmark{}, wrap("update favorite", err)
	}
	return out.toDomain(), nil
}

func (r *Repository) DeleteBookmark(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&bookmarkModel{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete bookmark: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Collections
// ─────────────────────────────────────────────────────────────────

func (r *Repository) ListCollections(ctx context.Context, userID string) ([]domain.Collection, error) {
	var rows []collectionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	out := make([]domain.Collection, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *Repository) CreateCollection(ctx context.Context, userID string, in domain.CollectionInput) (domain.Collection, error) {
	now := r.now()
	icon := in.Icon
	if icon == "" {
		icon = domain.DefaultCollectionIcon
	}
	row := collectionModel{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Icon:      icon,
		Color:     in.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Collection{}, fmt.Errorf("failed to create collection: %w", err)
	}
	return row.toDomain(), nil
}

func (r *Repository) UpdateCollection(ctx context.Context, userID, id string, in domain.CollectionInput) (domain.Collection, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Collection{}, domain.ErrNotFound
	}

	var out collectionModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := map[string]interface{}{
			"name":       in.Name,
			"color":      in.Color,
			"updated_at": r.now(),
		}
		if in.Icon != "" {
			values["icon"] = in.Icon
		}

		res := tx.Model(&collectionModel{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return notFound(tx.Where("id = ? AND user_id = ?", id, userID).Take(&out).Error)
	})
	if err != nil {
		return domain.Collection{}, wrap("update collection", err)
	}
	return out.toDomain(), nil
}

// DeleteCollection detaches the collection's bookmarks and removes it in one transaction.
func (r *Repository) DeleteCollection(ctx context.Context, userID, id string) ([]domain.Bookmark, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	var detached []bookmarkModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var col collectionModel
		if err := tx.Where("id = ? AND user_id = ?", id, userID).Take(&col).Error; err != nil {
			return notFound(err)
		}

		var ids []string
		if err := tx.Model(&bookmarkModel{}).
			Where("collection_id = ? AND user_id = ?", id, userID).
			Pluck("id", &ids).Error; err != nil {
			return err
		}

		if len(ids) > 0 {
			if err := tx.Model(&bookmarkModel{}).
				Where("id IN ? AND user_id = ?", ids, userID).
				Updates(map[string]interface{}{
					"collection_id": nil,
					"updated_at":    r.now(),
				}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&collectionModel{}).Error; err != nil {
			return err
		}

		if len(ids) == 0 {
			return nil
		}
		return tx.Where("id IN ? AND user_id = ?", ids, userID).Order("created_at DESC").Find(&detached).Error
	})
	if err != nil {
		return nil, wrap("delete collection", err)
	}

	out := make([]domain.Bookmark, 0, len(detached))
	for _, row := range detached {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────

func checkCollection(tx *gorm.DB, userID string, id *string) error {
	if id == nil {
		return nil
	}
	if _, err := uuid.Parse(*id); err != nil {
		return store.ErrInvalidCollection
	}
	var n int64
	if err := tx.Model(&collectionModel{}).
		Where("id = ? AND user_id = ?", *id, userID).
		Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return store.ErrInvalidCollection
	}
	return nil
}

// wrap keeps domain sentinels and validation errors recognizable.
func wrap(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || domain.IsValidation(err) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
