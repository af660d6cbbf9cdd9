package postgres

import (
	"context"
	"fmt"

	"github.com/okanlawon/pawdispatch/internal/domain"
)

type ClinicStore struct {
	db *DB
}

func NewClinicStore(db *DB) *ClinicStore {
	return &ClinicStore{db: db}
}

func (s *ClinicStore) Upsert(ctx context.Context, c *domain.Clinic) error {
	query := `
		INSERT INTO clinics (id, name, latitude, longitude, partner, push_token, messaging_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    latitude = EXCLUDED.latitude,
		    longitude = EXCLUDED.longitude,
		    partner = EXCLUDED.partner,
		    push_token = EXCLUDED.push_token,
		    messaging_number = EXCLUDED.messaging_number
	`

	_, err := s.db.Pool.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Latitude,
		c.Longitude,
		c.Partner,
		c.PushToken,
		c.MessagingNumber,
	)
	if err != nil {
		return fmt.Errorf("upsert clinic: %w", err)
	}

	return nil
}

func (s *ClinicStore) GetByIDs(ctx context.Context, ids []string) ([]*domain.Clinic, error) {
	query := `
		SELECT id, name, latitude, longitude, partner, push_token, messaging_number
		FROM clinics
		WHERE id = ANY($1)
	`

	rows, err := s.db.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query clinics by ids: %w", err)
	}
	defer rows.Close()

	return scanClinics(rows)
}

func (s *ClinicStore) List(ctx context.Context) ([]*domain.Clinic, error) {
	query := `
		SELECT id, name, latitude, longitude, partner, push_token, messaging_number
		FROM clinics
		ORDER BY id
	`

	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query clinics: %w", err)
	}
	defer rows.Close()

	return scanClinics(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanClinics(rows rowScanner) ([]*domain.Clinic, error) {
	var clinics []*domain.Clinic
	for rows.Next() {
		var c domain.Clinic
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Latitude,
			&c.Longitude,
			&c.Partner,
			&c.PushToken,
			&c.MessagingNumber,
		)
		if err != nil {
			return nil, fmt.Errorf("scan clinic: %w", err)
		}
		clinics = append(clinics, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clinics: %w", err)
	}
	return clinics, nil
}
