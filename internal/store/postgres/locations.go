package postgres

import (
	"context"

	"sponte/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const locationColumns = `id, user_id, business_name, dba_name, street_address, city, state, zip_code,
	phone_primary, phone_secondary, website_url, cms_platform, primary_category, services,
	brand_tone, blog_cadence, gbp_cadence, forbidden_words, forbidden_topics, primary_goal,
	report_frequency, report_emails, gbp_location_name, created_at, updated_at`

func (s *Store) CreateLocation(ctx context.Context, tx store.DBTransaction, loc *store.Location) error {
	query := `
		INSERT INTO locations (` + locationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`

	_, err := s.getExecutor(tx).ExecContext(ctx, query,
		loc.ID, loc.UserID, loc.BusinessName, loc.DBAName, loc.StreetAddress, loc.City, loc.State, loc.ZipCode,
		loc.PhonePrimary, loc.PhoneSecondary, loc.WebsiteURL, loc.CMSPlatform, loc.PrimaryCategory, pq.Array(loc.Services),
		loc.BrandTone, loc.BlogCadence, loc.GBPCadence, pq.Array(loc.ForbiddenWords), pq.Array(loc.ForbiddenTopics), loc.PrimaryGoal,
		loc.ReportFrequency, pq.Array(loc.ReportEmails), loc.GBPLocationName, loc.CreatedAt, loc.UpdatedAt,
	)
	return err
}

// UpdateLocation overwrites every mutable column of the location.
func (s *Store) UpdateLocation(ctx context.Context, tx store.DBTransaction, loc *store.Location) error {
	query := `
		UPDATE locations SET
			business_name = $2, dba_name = $3, street_address = $4, city = $5, state = $6, zip_code = $7,
			phone_primary = $8, phone_secondary = $9, website_url = $10, cms_platform = $11, primary_category = $12,
			services = $13, brand_tone = $14, blog_cadence = $15, gbp_cadence = $16, forbidden_words = $17,
			forbidden_topics = $18, primary_goal = $19, report_frequency = $20, report_emails = $21,
			gbp_location_name = $22, updated_at = NOW()
		WHERE id = $1
	`

	res, err := s.getExecutor(tx).ExecContext(ctx, query,
		loc.ID, loc.BusinessName, loc.DBAName, loc.StreetAddress, loc.City, loc.State, loc.ZipCode,
		loc.PhonePrimary, loc.PhoneSecondary, loc.WebsiteURL, loc.CMSPlatform, loc.PrimaryCategory,
		pq.Array(loc.Services), loc.BrandTone, loc.BlogCadence, loc.GBPCadence, pq.Array(loc.ForbiddenWords),
		pq.Array(loc.ForbiddenTopics), loc.PrimaryGoal, loc.ReportFrequency, pq.Array(loc.ReportEmails),
		loc.GBPLocationName,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetLocation(ctx context.Context, id uuid.UUID) (*store.Location, error) {
	query := "SELECT " + locationColumns + " FROM locations WHERE id = $1"
	return scanLocation(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetLocationByUser(ctx context.Context, userID uuid.UUID) (*store.Location, error) {
	query := "SELECT " + locationColumns + " FROM locations WHERE user_id = $1 ORDER BY created_at ASC LIMIT 1"
	return scanLocation(s.db.QueryRowContext(ctx, query, userID))
}

func (s *Store) ListLocations(ctx context.Context) ([]store.Location, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+locationColumns+" FROM locations ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *loc)
	}
	return out, rows.Err()
}

func scanLocation(row scanner) (*store.Location, error) {
	var l store.Location
	err := row.Scan(
		&l.ID, &l.UserID, &l.BusinessName, &l.DBAName, &l.StreetAddress, &l.City, &l.State, &l.ZipCode,
		&l.PhonePrimary, &l.PhoneSecondary, &l.WebsiteURL, &l.CMSPlatform, &l.PrimaryCategory, pq.Array(&l.Services),
		&l.BrandTone, &l.BlogCadence, &l.GBPCadence, pq.Array(&l.ForbiddenWords), pq.Array(&l.ForbiddenTopics), &l.PrimaryGoal,
		&l.ReportFrequency, pq.Array(&l.ReportEmails), &l.GBPLocationName, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}
