package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkgforge/productd/internal/domain/resolvable"
)

var _ resolvable.Store = (*ResolvableStore)(nil)

// ResolvableStore implements resolvable.Store backed by PostgreSQL.
type ResolvableStore struct {
	pool *pgxpool.Pool
}

// NewResolvableStore returns a ResolvableStore that uses the given pool.
func NewResolvableStore(pool *pgxpool.Pool) *ResolvableStore {
	return &ResolvableStore{pool: pool}
}

// ListResolvables returns the whole catalog ordered by name.
func (s *ResolvableStore) ListResolvables(ctx context.Context) ([]resolvable.Properties, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, kind, repository, status, version, arch, vendor, summary
		FROM resolvables
		ORDER BY name, kind, repository`)
	if err != nil {
		return nil, fmt.Errorf("listing resolvables: %w", err)
	}
	defer rows.Close()

	var out []resolvable.Properties
	for rows.Next() {
		var p resolvable.Properties
		if err := rows.Scan(&p.Name, &p.Kind, &p.Repository, &p.Status,
			&p.Version, &p.Arch, &p.Vendor, &p.Summary); err != nil {
			return nil, fmt.Errorf("scanning resolvable: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading resolvables: %w", err)
	}
	return out, nil
}

// UpsertResolvable inserts or replaces a catalog entry keyed by
// (name, kind, repository).
func (s *ResolvableStore) UpsertResolvable(ctx context.Context, p resolvable.Properties) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO resolvables (name, kind, repository, status, version, arch, vendor, summary, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (name, kind, repository) DO UPDATE SET
			status = EXCLUDED.status,
			version = EXCLUDED.version,
			arch = EXCLUDED.arch,
			vendor = EXCLUDED.vendor,
			summary = EXCLUDED.summary,
			updated_at = now()`,
		p.Name, p.Kind, p.Repository, p.Status, p.Version, p.Arch, p.Vendor, p.Summary)
	if err != nil {
		return fmt.Errorf("upserting resolvable %q: %w", p.Name, err)
	}
	return nil
}

// GetLicense returns the license for (name, lang), or nil when the
// resolvable has no license text in that language.
func (s *ResolvableStore) GetLicense(ctx context.Context, name, lang string) (*resolvable.License, error) {
	l := resolvable.License{Name: name, Language: lang}
	err := s.pool.QueryRow(ctx, `
		SELECT text, confirmation_required
		FROM licenses
		WHERE name = $1 AND language = $2`,
		name, lang).Scan(&l.Text, &l.ConfirmationRequired)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting license for %q (%s): %w", name, lang, err)
	}
	return &l, nil
}

// UpsertLicense inserts or replaces a license text.
func (s *ResolvableStore) UpsertLicense(ctx context.Context, l resolvable.License) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO licenses (name, language, text, confirmation_required)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name, language) DO UPDATE SET
			text = EXCLUDED.text,
			confirmation_required = EXCLUDED.confirmation_required`,
		l.Name, l.Language, l.Text, l.ConfirmationRequired)
	if err != nil {
		return fmt.Errorf("upserting license for %q (%s): %w", l.Name, l.Language, err)
	}
	return nil
}

// LicenseConfirmationRequired reports whether any license text for name
// carries the confirmation-required flag.
func (s *ResolvableStore) LicenseConfirmationRequired(ctx context.Context, name string) (bool, error) {
	var required bool
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(bool_or(confirmation_required), false)
		FROM licenses WHERE name = $1`,
		name).Scan(&required)
	if err != nil {
		return false, fmt.Errorf("getting confirmation requirement for %q: %w", name, err)
	}
	return required, nil
}

// LicenseConfirmed reports the persisted confirmation flag for name.
// Unknown names read as false.
func (s *ResolvableStore) LicenseConfirmed(ctx context.Context, name string) (bool, error) {
	var confirmed bool
	err := s.pool.QueryRow(ctx, `
		SELECT confirmed FROM license_confirmations WHERE name = $1`,
		name).Scan(&confirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("getting license confirmation for %q: %w", name, err)
	}
	return confirmed, nil
}

// SetLicenseConfirmed persists the confirmation flag for name.
func (s *ResolvableStore) SetLicenseConfirmed(ctx context.Context, name string, confirmed bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO license_confirmations (name, confirmed, confirmed_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET
			confirmed = EXCLUDED.confirmed,
			confirmed_at = now()`,
		name, confirmed)
	if err != nil {
		return fmt.Errorf("setting license confirmation for %q: %w", name, err)
	}
	return nil
}
