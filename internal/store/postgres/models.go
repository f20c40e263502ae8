package postgres

import (
	"time"

	"github.com/lib/pq"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

type collectionModel struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey"`
	UserID    string    `gorm:"column:user_id;type:text;not null;index:idx_collections_user_created,priority:1"`
	Name      string    `gorm:"column:name;type:varchar(60);not null"`
	Icon      string    `gorm:"column:icon;type:text;not null;default:'folder'"`
	Color     string    `gorm:"column:color;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_collections_user_created,priority:2"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (collectionModel) TableName() string { return "collections" }

type bookmarkModel struct {
	ID           string         `gorm:"column:id;type:uuid;primaryKey"`
	UserID       string         `gorm:"column:user_id;type:text;not null;index:idx_bookmarks_user_created,priority:1"`
	CollectionID *string        `gorm:"column:collection_id;type:uuid;index"`
	Title        string         `gorm:"column:title;type:varchar(200);not null"`
	URL          string         `gorm:"column:url;type:text;not null"`
	Description  *string        `gorm:"column:description;type:text"`
	FaviconURL   *string        `gorm:"column:favicon_url;type:text"`
	OGImageURL   *string        `gorm:"column:og_image_url;type:text"`
	Tags         pq.StringArray `gorm:"column:tags;type:text[];not null;default:'{}'"`
	IsFavorite   bool           `gorm:"column:is_favorite;not null;default:false"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null;index:idx_bookmarks_user_created,priority:2,sort:desc"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null"`

	Collection *collectionModel `gorm:"foreignKey:CollectionID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (bookmarkModel) TableName() string { return "bookmarks" }

func (m bookmarkModel) toDomain() domain.Bookmark {
	tags := []string(m.Tags)
	if tags == nil {
		tags = []string{}
	}
	return domain.Bookmark{
		ID:           m.ID,
		UserID:       m.UserID,
		CollectionID: m.CollectionID,
		Title:        m.Title,
		URL:          m.URL,
		Description:  m.Description,
		FaviconURL:   m.FaviconURL,
		OGImageURL:   m.OGImageURL,
		Tags:         tags,
		IsFavorite:   m.IsFavorite,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func (m collectionModel) toDomain() domain.Collection {
	return domain.Collection{
		ID:        m.ID,
		UserID:    m.UserID,
		Name:      m.Name,
		Icon:      m.Icon,
		Color:     m.Color,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}
