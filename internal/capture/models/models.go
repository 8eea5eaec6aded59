// Package models holds the persisted capture-line record.
package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"lineacaptura/pkg/domain"
)

// Status tracks whether the authority has answered for a record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one generated capture-line request. It is inserted before the
// authority is called and updated exactly once with the outcome.
type Record struct {
	ID          domain.RecordID    `json:"id"`
	Payer       domain.Payer       `json:"payer"`
	AuthorityID domain.AuthorityID `json:"authority_id"`
	Selection   domain.Selection   `json:"selection"`
	Snapshot    json.RawMessage    `json:"snapshot"`
	RequestID   string             `json:"request_id"`
	FeeSubtotal decimal.Decimal    `json:"fee_subtotal"`
	TaxSubtotal decimal.Decimal    `json:"tax_subtotal"`
	GrandTotal  decimal.Decimal    `json:"grand_total"`
	Document    json.RawMessage    `json:"document"`
	Status      Status             `json:"status"`
	RequestedOn time.Time          `json:"requested_on"`
	ValidUntil  time.Time          `json:"valid_until"`
	Response    *Response          `json:"response,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Response is what the authority returned, decoded where possible.
type Response struct {
	Success         bool             `json:"success"`
	RawBody         string           `json:"raw_body,omitempty"`
	DocumentID      string           `json:"document_id,omitempty"`
	PaymentType     string           `json:"payment_type,omitempty"`
	EncodedDocument string           `json:"encoded_document,omitempty"`
	ResultCode      string           `json:"result_code,omitempty"`
	CaptureLine     string           `json:"capture_line,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	ValidUntil      string           `json:"valid_until,omitempty"`
	Errors          json.RawMessage  `json:"errors,omitempty"`
	RespondedAt     time.Time        `json:"responded_at"`
}

// IsFinal reports whether the record already carries a response.
func (r *Record) IsFinal() bool {
	return r.Status != StatusPending
}
