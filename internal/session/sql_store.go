package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sessionRecord is one persisted token per profile.
type sessionRecord struct {
	Profile   string    `gorm:"primaryKey;size:128"`
	Token     string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (sessionRecord) TableName() string {
	return "client_sessions"
}

// SQLStore keeps the token in a relational database through GORM.
type SQLStore struct {
	db      *gorm.DB
	profile string
	ttl     time.Duration
}

// Ensure SQLStore implements Store
var _ Store = (*SQLStore)(nil)

// NewSQLStore creates the sessions table if needed and returns a store for profile.
func NewSQLStore(db *gorm.DB, profile string, ttl time.Duration) (*SQLStore, error) {
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}
	return &SQLStore{db: db, profile: profile, ttl: ttl}, nil
}

// Token returns the stored token, ignoring rows that have expired.
func (s *SQLStore) Token(ctx context.Context) (string, error) {
	var rec sessionRecord
	err := s.db.WithContext(ctx).Where("profile = ?", s.profile).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !rec.ExpiresAt.IsZero() && time.Now().After(rec.ExpiresAt) {
		return "", nil
	}
	return rec.Token, nil
}

// SetToken upserts the row for this profile.
func (s *SQLStore) SetToken(ctx context.Context, token string) error {
	now := time.Now()
	ttl, ok := ttlFor(token, s.ttl, now)
	if !ok {
		return s.ClearToken(ctx)
	}
	rec := sessionRecord{
		Profile:   s.profile,
		Token:     token,
		ExpiresAt: now.Add(ttl),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
}

// ClearToken deletes the row for this profile, if any.
func (s *SQLStore) ClearToken(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("profile = ?", s.profile).Delete(&sessionRecord{}).Error
}
