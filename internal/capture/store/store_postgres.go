package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"lineacaptura/internal/capture/models"
	"lineacaptura/pkg/domain"
	txcontext "lineacaptura/pkg/platform/tx"
)

const recordColumns = `id, payer_type, national_id, tax_id, legal_name, first_name, paternal_surname,
	maternal_surname, authority_id, selected_services, snapshot, request_id, fee_subtotal, tax_subtotal,
	grand_total, request_document, status, requested_on, valid_until, response_body, document_id,
	payment_type, encoded_document, result_code, capture_line, authority_amount, authority_valid_until,
	authority_errors, responded_at, success, created_at, updated_at`

// PostgresStore persists capture records in the capture_lines table. Writes
// join the transaction carried by the context, if any.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NextID reserves an id from the table's sequence so the request id can be
// derived before the row is inserted.
func (s *PostgresStore) NextID(ctx context.Context) (domain.RecordID, error) {
	var id int64
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT nextval(pg_get_serial_sequence('capture_lines', 'id'))`,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("reserve capture record id: %w", err)
	}
	return domain.RecordID(id), nil
}

func (s *PostgresStore) Create(ctx context.Context, r *models.Record) error {
	p := payerColumns(r.Payer)
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO capture_lines (id, payer_type, national_id, tax_id, legal_name, first_name,
			paternal_surname, maternal_surname, authority_id, selected_services, snapshot, request_id,
			fee_subtotal, tax_subtotal, grand_total, request_document, status, requested_on, valid_until,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		int64(r.ID),
		string(r.Payer.Type()),
		p.nationalID,
		r.Payer.TaxID(),
		p.legalName,
		p.firstName,
		p.paternalSurname,
		p.maternalSurname,
		int64(r.AuthorityID),
		r.Selection.String(),
		[]byte(r.Snapshot),
		r.RequestID,
		r.FeeSubtotal,
		r.TaxSubtotal,
		r.GrandTotal,
		[]byte(r.Document),
		string(r.Status),
		r.RequestedOn,
		r.ValidUntil,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert capture record: %w", err)
	}
	return nil
}

// AttachResponse records the authority outcome on a pending record.
func (s *PostgresStore) AttachResponse(ctx context.Context, id domain.RecordID, resp models.Response) error {
	exec := txcontext.Exec(ctx, s.db)
	var amount any
	if resp.Amount != nil {
		amount = *resp.Amount
	}
	res, err := exec.ExecContext(ctx, `
		UPDATE capture_lines SET status = $2, success = $3, response_body = $4, document_id = $5,
			payment_type = $6, encoded_document = $7, result_code = $8, capture_line = $9,
			authority_amount = $10, authority_valid_until = $11, authority_errors = $12,
			responded_at = $13, updated_at = $13
		WHERE id = $1 AND status = 'pending'`,
		int64(id),
		string(statusFor(resp)),
		resp.Success,
		nullString(resp.RawBody),
		nullString(resp.DocumentID),
		nullString(resp.PaymentType),
		nullString(resp.EncodedDocument),
		nullString(resp.ResultCode),
		nullString(resp.CaptureLine),
		amount,
		nullString(resp.ValidUntil),
		nullJSON(resp.Errors),
		resp.RespondedAt,
	)
	if err != nil {
		return fmt.Errorf("update capture record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update capture record: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := exec.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM capture_lines WHERE id = $1)`, int64(id),
	).Scan(&exists); err != nil {
		return fmt.Errorf("check capture record: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return fmt.Errorf("record %d already has a response: %w", id, ErrInvalidState)
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.RecordID) (*models.Record, error) {
	var (
		r                                                    models.Record
		rawID, authorityID                                   int64
		payerType, taxID, selection, status                  string
		nationalID, legalName, firstName, paternal, maternal sql.NullString
		body, documentID, paymentType, encoded, resultCode   sql.NullString
		captureLine, validUntil                              sql.NullString
		amount                                               decimal.NullDecimal
		errs                                                 []byte
		respondedAt                                          sql.NullTime
		success                                              bool
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM capture_lines WHERE id = $1`, int64(id),
	).Scan(
		&rawID, &payerType, &nationalID, &taxID, &legalName, &firstName, &paternal,
		&maternal, &authorityID, &selection, &r.Snapshot, &r.RequestID, &r.FeeSubtotal, &r.TaxSubtotal,
		&r.GrandTotal, &r.Document, &status, &r.RequestedOn, &r.ValidUntil, &body, &documentID,
		&paymentType, &encoded, &resultCode, &captureLine, &amount, &validUntil,
		&errs, &respondedAt, &success, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find capture record: %w", err)
	}

	r.ID = domain.RecordID(rawID)
	r.AuthorityID = domain.AuthorityID(authorityID)
	r.Status = models.Status(status)
	if r.Selection, err = domain.ParseSelection(selection); err != nil {
		return nil, fmt.Errorf("decode selection of record %d: %w", rawID, err)
	}
	if domain.PayerType(payerType) == domain.PayerOrganization {
		r.Payer = domain.Payer{Organization: &domain.Organization{TaxID: taxID, LegalName: legalName.String}}
	} else {
		r.Payer = domain.Payer{Individual: &domain.Individual{
			NationalID:      nationalID.String,
			TaxID:           taxID,
			FirstName:       firstName.String,
			PaternalSurname: paternal.String,
			MaternalSurname: maternal.String,
		}}
	}

	if r.IsFinal() {
		resp := &models.Response{
			Success:         success,
			RawBody:         body.String,
			DocumentID:      documentID.String,
			PaymentType:     paymentType.String,
			EncodedDocument: encoded.String,
			ResultCode:      resultCode.String,
			CaptureLine:     captureLine.String,
			ValidUntil:      validUntil.String,
			RespondedAt:     respondedAt.Time,
		}
		if amount.Valid {
			resp.Amount = &amount.Decimal
		}
		if len(errs) > 0 {
			resp.Errors = json.RawMessage(errs)
		}
		r.Response = resp
	}
	return &r, nil
}

type payerRow struct {
	nationalID, legalName, firstName, paternalSurname, maternalSurname sql.NullString
}

func payerColumns(p domain.Payer) payerRow {
	var row payerRow
	if in := p.Individual; in != nil {
		row.nationalID = nullString(in.NationalID)
		row.firstName = nullString(in.FirstName)
		row.paternalSurname = nullString(in.PaternalSurname)
		row.maternalSurname = nullString(in.MaternalSurname)
	}
	if org := p.Organization; org != nil {
		row.legalName = nullString(org.LegalName)
	}
	return row
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return []byte(raw)
}
