package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"lineacaptura/internal/catalog/models"
	"lineacaptura/pkg/domain"
	"lineacaptura/pkg/platform/sentinel"
)

// ErrNotFound is returned when a catalog row does not exist.
var ErrNotFound = sentinel.ErrNotFound

const serviceColumns = `id, description, homoclave, variant, authority_acronym, reserved_use,
	unit_fee, taxed, legal_basis, valid_from, valid_to, capture_line_validity, validity_type,
	accounting_code, grouping_id, grouping_type, periodicity_code, period_code, mandatory,
	amount_name, variable_amount, inflation_update, surcharges, fiscal_fine, compensation,
	credit_balance, created_at, updated_at`

// PostgresStore reads catalog rows from PostgreSQL. Rows are reference data
// maintained outside this service; the store never writes them.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed catalog store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindAuthority(ctx context.Context, id domain.AuthorityID) (*models.Authority, error) {
	var a models.Authority
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, short_code, admin_unit FROM authorities WHERE id = $1`, int64(id),
	).Scan(&a.ID, &a.Name, &a.ShortCode, &a.AdminUnit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find authority: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) ListAuthorities(ctx context.Context) ([]models.Authority, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, short_code, admin_unit FROM authorities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list authorities: %w", err)
	}
	defer rows.Close()

	var out []models.Authority
	for rows.Next() {
		var a models.Authority
		if err := rows.Scan(&a.ID, &a.Name, &a.ShortCode, &a.AdminUnit); err != nil {
			return nil, fmt.Errorf("scan authority: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authorities: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindServices(ctx context.Context, ids []domain.ServiceID) ([]models.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = ANY($1) ORDER BY id`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("find services: %w", err)
	}
	defer rows.Close()
	return scanServices(rows)
}

// ListPrimaryServices returns primary services whose homoclave contains code.
func (s *PostgresStore) ListPrimaryServices(ctx context.Context, code string) ([]models.Service, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+serviceColumns+` FROM services
		 WHERE homoclave LIKE '%' || $1 || '%' AND grouping_type = $2
		 ORDER BY homoclave, variant`, escapeLike(code), models.PrimaryGrouping)
	if err != nil {
		return nil, fmt.Errorf("list services by authority: %w", err)
	}
	defer rows.Close()
	return scanServices(rows)
}

func scanServices(rows *sql.Rows) ([]models.Service, error) {
	var out []models.Service
	for rows.Next() {
		var (
			svc       models.Service
			validFrom sql.NullTime
			validTo   sql.NullTime
		)
		if err := rows.Scan(
			&svc.ID, &svc.Description, &svc.Homoclave, &svc.Variant, &svc.AuthorityAcronym, &svc.ReservedUse,
			&svc.UnitFee, &svc.Taxed, &svc.LegalBasis, &validFrom, &validTo, &svc.CaptureLineValidity, &svc.ValidityType,
			&svc.AccountingCode, &svc.GroupingID, &svc.GroupingType, &svc.PeriodicityCode, &svc.PeriodCode, &svc.Mandatory,
			&svc.AmountName, &svc.Variable, &svc.InflationUpdate, &svc.Surcharges, &svc.FiscalFine, &svc.Compensation,
			&svc.CreditBalance, &svc.CreatedAt, &svc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		if validFrom.Valid {
			svc.ValidFrom = &validFrom.Time
		}
		if validTo.Valid {
			svc.ValidTo = &validTo.Time
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
