package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"lineacaptura/pkg/domain"
)

type PostgresStoreSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db, s.mock = db, mock
	s.store = NewPostgres(db)
}

func (s *PostgresStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

var serviceCols = []string{
	"id", "description", "homoclave", "variant", "authority_acronym", "reserved_use",
	"unit_fee", "taxed", "legal_basis", "valid_from", "valid_to", "capture_line_validity", "validity_type",
	"accounting_code", "grouping_id", "grouping_type", "periodicity_code", "period_code", "mandatory",
	"amount_name", "variable_amount", "inflation_update", "surcharges", "fiscal_fine", "compensation",
	"credit_balance", "created_at", "updated_at",
}

func serviceRow(rows *sqlmock.Rows, id int64, homoclave, fee string, taxed bool, validTo any) *sqlmock.Rows {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return rows.AddRow(
		id, "Servicio", homoclave, "", "ARTF", "",
		fee, taxed, "Art. 5 LFD", nil, validTo, "30 días", "N",
		"400123", "17", "P", "0", "0", false,
		"", false, false, false, false, false,
		false, now, now,
	)
}

func (s *PostgresStoreSuite) TestFindAuthority() {
	ctx := context.Background()

	s.Run("found", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, short_code, admin_unit FROM authorities WHERE id = $1`)).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "short_code", "admin_unit"}).
				AddRow(int64(1), "Agencia", "ARTF", "100"))

		a, err := s.store.FindAuthority(ctx, 1)
		s.Require().NoError(err)
		s.Equal(domain.AuthorityID(1), a.ID)
		s.Equal("ARTF", a.ShortCode)
	})

	s.Run("not found", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta(`FROM authorities WHERE id = $1`)).
			WithArgs(int64(2)).
			WillReturnError(sql.ErrNoRows)

		_, err := s.store.FindAuthority(ctx, 2)
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("driver error wrapped", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta(`FROM authorities WHERE id = $1`)).
			WithArgs(int64(3)).
			WillReturnError(errors.New("connection reset"))

		_, err := s.store.FindAuthority(ctx, 3)
		s.Require().Error(err)
		s.NotErrorIs(err, ErrNotFound)
		s.Contains(err.Error(), "find authority")
	})
}

func (s *PostgresStoreSuite) TestFindServices() {
	validTo := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(serviceCols)
	serviceRow(rows, 10, "ARTF-01-001", "500.00", true, validTo)
	serviceRow(rows, 11, "ARTF-01-002", "123.45", false, nil)

	s.mock.ExpectQuery(regexp.QuoteMeta(`FROM services WHERE id = ANY($1) ORDER BY id`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	list, err := s.store.FindServices(context.Background(), []domain.ServiceID{11, 10})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.True(list[0].UnitFee.Equal(decimal.RequireFromString("500.00")))
	s.True(list[0].Taxed)
	s.Require().NotNil(list[0].ValidTo)
	s.Equal(validTo, *list[0].ValidTo)
	s.Nil(list[1].ValidFrom)
	s.Equal("17", list[1].GroupingID)
}

func (s *PostgresStoreSuite) TestFindServicesEmptyIDs() {
	list, err := s.store.FindServices(context.Background(), nil)
	s.NoError(err)
	s.Empty(list)
}

func (s *PostgresStoreSuite) TestListPrimaryServicesEscapesLikePattern() {
	rows := sqlmock.NewRows(serviceCols)
	serviceRow(rows, 10, "A_B-01", "1.00", false, nil)

	s.mock.ExpectQuery(regexp.QuoteMeta(`WHERE homoclave LIKE '%' || $1 || '%' AND grouping_type = $2`)).
		WithArgs(`A\_B`, "P").
		WillReturnRows(rows)

	list, err := s.store.ListPrimaryServices(context.Background(), "A_B")
	s.Require().NoError(err)
	s.Len(list, 1)
}
