package store

import (
	"database/sql"
	"strconv"

	"github.com/examinaite/examinaite/internal/model"
)

// SetMetadata upserts a key-value pair in the app_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO app_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM app_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetServiceInfo records the running configuration.
func (s *Store) SetServiceInfo(info model.ServiceInfo) error {
	pairs := []struct{ k, v string }{
		{"model", info.Model},
		{"catalog_subjects", strconv.Itoa(info.CatalogSubjects)},
		{"started_at", info.StartedAt},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// GetServiceInfo reads the last recorded configuration.
func (s *Store) GetServiceInfo() (model.ServiceInfo, error) {
	var info model.ServiceInfo
	var err error

	if info.Model, err = s.GetMetadata("model"); err != nil {
		return info, err
	}
	if info.StartedAt, err = s.GetMetadata("started_at"); err != nil {
		return info, err
	}
	n, err := s.GetMetadata("catalog_subjects")
	if err != nil {
		return info, err
	}
	if n != "" {
		info.CatalogSubjects, err = strconv.Atoi(n)
		if err != nil {
			return info, err
		}
	}
	return info, nil
}
