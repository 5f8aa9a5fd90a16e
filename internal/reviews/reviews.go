package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
)

// PerPage is the album size of one reviews page.
const PerPage = 6

var ErrInvalidReview = errors.New("invalid review")

type Review struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MediaType MediaType `gorm:"size:16;not null" json:"media_type"`
	FileID    string    `gorm:"not null" json:"file_id"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Add(ctx context.Context, mediaType MediaType, fileID, caption string) (*Review, error) {
	if fileID == "" || (mediaType != MediaPhoto && mediaType != MediaVideo) {
		return nil, ErrInvalidReview
	}
	rev := &Review{
		MediaType: mediaType,
		FileID:    fileID,
		Caption:   strings.TrimSpace(caption),
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(rev).Error; err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return rev, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Review{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

// Page returns page (1-based) of reviews, newest first.
func (r *Repository) Page(ctx context.Context, page, perPage int) ([]Review, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = PerPage
	}
	var out []Review
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("select reviews page: %w", err)
	}
	return out, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]Review, error) {
	return r.Page(ctx, 1, limit)
}

// Delete removes review id and reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&Review{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete review: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// TotalPages is the number of pages needed for n reviews, never less than 1.
func TotalPages(n int64, perPage int) int {
	if perPage <= 0 {
		perPage = PerPage
	}
	pages := int((n + int64(perPage) - 1) / int64(perPage))
	if pages < 1 {
		return 1
	}
	return pages
}
