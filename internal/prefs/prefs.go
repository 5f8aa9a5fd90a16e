// Package prefs keeps the per-user language preference.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Preference struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Lang      string    `gorm:"size:8" json:"lang"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Lang returns the saved language or "" when the user never picked one.
func (s *Store) Lang(ctx context.Context, userID int64) (string, error) {
	var p Preference
	err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select preference: %w", err)
	}
	return p.Lang, nil
}

func (s *Store) SetLang(ctx context.Context, userID int64, lang string) error {
	p := Preference{UserID: userID, Lang: lang, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"lang", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}
