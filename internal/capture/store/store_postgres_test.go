package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"lineacaptura/internal/capture/models"
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

var created = time.Date(2026, 1, 31, 16, 5, 0, 0, time.UTC)

var recordCols = []string{
	"id", "payer_type", "national_id", "tax_id", "legal_name", "first_name", "paternal_surname",
	"maternal_surname", "authority_id", "selected_services", "snapshot", "request_id", "fee_subtotal",
	"tax_subtotal", "grand_total", "request_document", "status", "requested_on", "valid_until",
	"response_body", "document_id", "payment_type", "encoded_document", "result_code", "capture_line",
	"authority_amount", "authority_valid_until", "authority_errors", "responded_at", "success",
	"created_at", "updated_at",
}

func (s *PostgresStoreSuite) TestNextID() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT nextval(pg_get_serial_sequence('capture_lines', 'id'))`)).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(42)))

	id, err := s.store.NextID(context.Background())
	s.Require().NoError(err)
	s.Equal(domain.RecordID(42), id)
}

func (s *PostgresStoreSuite) TestCreateIndividual() {
	r := &models.Record{
		ID: 42,
		Payer: domain.Payer{Individual: &domain.Individual{
			NationalID:      "GODE561231HDFRRN09",
			TaxID:           "GODE561231GR8",
			FirstName:       "Emilio",
			PaternalSurname: "Gómez",
		}},
		AuthorityID: 1,
		Selection:   domain.Selection{{ServiceID: 10, Quantity: 1}, {ServiceID: 11, Quantity: 2}},
		Snapshot:    json.RawMessage(`{"resumen":{}}`),
		RequestID:   "ARTF100260000000042",
		FeeSubtotal: decimal.RequireFromString("623.45"),
		TaxSubtotal: decimal.RequireFromString("80.00"),
		GrandTotal:  decimal.RequireFromString("703"),
		Document:    json.RawMessage(`{"DatosGenerales":{}}`),
		Status:      models.StatusPending,
		RequestedOn: created,
		ValidUntil:  created.AddDate(0, 1, 0),
		CreatedAt:   created,
		UpdatedAt:   created,
	}

	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO capture_lines`)).
		WithArgs(int64(42), "F", "GODE561231HDFRRN09", "GODE561231GR8", nil, "Emilio", "Gómez", nil,
			int64(1), "10:1,11:2", []byte(`{"resumen":{}}`), "ARTF100260000000042",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), []byte(`{"DatosGenerales":{}}`),
			"pending", created, created.AddDate(0, 1, 0), created, created).
		WillReturnResult(sqlmock.NewResult(42, 1))

	s.Require().NoError(s.store.Create(context.Background(), r))
}

func (s *PostgresStoreSuite) TestAttachResponse() {
	ctx := context.Background()
	amount := decimal.RequireFromString("703")
	resp := models.Response{
		Success:     true,
		RawBody:     `{"Acuse":{}}`,
		CaptureLine: "0326ABCD1234",
		Amount:      &amount,
		RespondedAt: created,
	}

	s.Run("pending record", func() {
		s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE capture_lines SET status = $2`)).
			WithArgs(int64(42), "completed", true, `{"Acuse":{}}`, nil, nil, nil, nil, "0326ABCD1234",
				amount, nil, nil, created).
			WillReturnResult(sqlmock.NewResult(0, 1))

		s.Require().NoError(s.store.AttachResponse(ctx, 42, resp))
	})

	s.Run("already answered", func() {
		s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE capture_lines`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		s.ErrorIs(s.store.AttachResponse(ctx, 42, resp), ErrInvalidState)
	})

	s.Run("missing record", func() {
		s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE capture_lines`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		s.ErrorIs(s.store.AttachResponse(ctx, 7, resp), ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestFindByID() {
	ctx := context.Background()

	s.Run("organization with failed response", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta(`FROM capture_lines WHERE id = $1`)).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows(recordCols).AddRow(
				int64(5), "M", nil, "ABC010203AB1", "Transportes del Norte SA", nil, nil,
				nil, int64(1), "10:3", []byte(`{}`), "ARTF100260000000005", "1500.00",
				"240.00", "1740", []byte(`{}`), "failed", created, created.AddDate(0, 1, 0),
				"upstream timeout", nil, nil, nil, nil, nil,
				nil, nil, []byte(`{"category":"timeout"}`), created, false,
				created, created,
			))

		r, err := s.store.FindByID(ctx, 5)
		s.Require().NoError(err)
		s.Equal(domain.PayerOrganization, r.Payer.Type())
		s.Equal("Transportes del Norte SA", r.Payer.Organization.LegalName)
		s.Equal(domain.Selection{{ServiceID: 10, Quantity: 3}}, r.Selection)
		s.True(decimal.RequireFromString("1740").Equal(r.GrandTotal))
		s.Require().NotNil(r.Response)
		s.False(r.Response.Success)
		s.Nil(r.Response.Amount)
		s.JSONEq(`{"category":"timeout"}`, string(r.Response.Errors))
	})

	s.Run("pending record has no response", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta(`FROM capture_lines WHERE id = $1`)).
			WithArgs(int64(6)).
			WillReturnRows(sqlmock.NewRows(recordCols).AddRow(
				int64(6), "F", "GODE561231HDFRRN09", "GODE561231GR8", nil, "Emilio", "Gómez",
				nil, int64(1), "10:1", []byte(`{}`), "ARTF100260000000006", "500.00",
				"80.00", "580", []byte(`{}`), "pending", created, created.AddDate(0, 1, 0),
				nil, nil, nil, nil, nil, nil,
				nil, nil, nil, nil, false,
				created, created,
			))

		r, err := s.store.FindByID(ctx, 6)
		s.Require().NoError(err)
		s.Equal("Emilio", r.Payer.Individual.FirstName)
		s.Nil(r.Response)
	})

	s.Run("not found", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta(`FROM capture_lines WHERE id = $1`)).
			WithArgs(int64(9)).
			WillReturnError(sql.ErrNoRows)

		_, err := s.store.FindByID(ctx, 9)
		s.ErrorIs(err, ErrNotFound)
	})
}
