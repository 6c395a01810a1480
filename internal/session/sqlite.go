package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ChristianVeneko/chartifydata/internal/models"
)

// SQLiteStore persists session values in the session_values table created by
// the shared migration runner. Change notifications cover writers within this
// process; a second process sharing the database converges on its next
// scheduled check.
type SQLiteStore struct {
	notifier
	db *sql.DB
}

// NewSQLiteStore wraps an open database. The caller is responsible for
// running migrations first.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM session_values WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session value %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO session_values (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write session value %s: %w", key, err)
	}
	s.publish(key)
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	res, err := s.db.Exec("DELETE FROM session_values WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete session value %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.publish(key)
	}
	return nil
}

// SaveProfile caches the validated user profile. Profile writes do not emit
// credential change notifications.
func (s *SQLiteStore) SaveProfile(profile *models.UserProfile) error {
	if profile == nil || profile.ID == "" {
		return fmt.Errorf("cannot cache empty profile")
	}

	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO profile_cache (id, payload) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP
	`, profile.ID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to cache profile: %w", err)
	}
	return nil
}

// LoadProfile returns the most recently cached profile, nil when none exists.
func (s *SQLiteStore) LoadProfile() (*models.UserProfile, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM profile_cache ORDER BY updated_at DESC LIMIT 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached profile: %w", err)
	}

	var profile models.UserProfile
	if err := json.Unmarshal([]byte(payload), &profile); err != nil {
		return nil, fmt.Errorf("failed to decode cached profile: %w", err)
	}
	return &profile, nil
}

// ProfileCache is implemented by stores that can persist the validated user
// profile alongside the credential fields.
type ProfileCache interface {
	SaveProfile(profile *models.UserProfile) error
	LoadProfile() (*models.UserProfile, error)
}
