package handler

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"lineacaptura/internal/capture"
	capturemodels "lineacaptura/internal/capture/models"
	catalogmodels "lineacaptura/internal/catalog/models"
	"lineacaptura/internal/fees"
	"lineacaptura/internal/receipt"
	"lineacaptura/pkg/domain"
)

// AuthoritiesResponse is the body of GET /inicio.
type AuthoritiesResponse struct {
	Authorities []catalogmodels.Authority `json:"authorities"`
	Next        string                    `json:"next"`
}

// ServicesResponse is the body of GET /tramite.
type ServicesResponse struct {
	Authority catalogmodels.Authority `json:"authority"`
	Services  []catalogmodels.Service `json:"services"`
	Next      string                  `json:"next"`
}

// SelectedServiceResponse pairs a service with its chosen quantity.
type SelectedServiceResponse struct {
	Service  catalogmodels.Service `json:"service"`
	Quantity int                   `json:"quantity"`
}

// SelectionResponse is the body of GET /persona.
type SelectionResponse struct {
	Services []SelectedServiceResponse `json:"services"`
	Next     string                    `json:"next"`
}

// SummaryLine is one priced row of the summary page.
type SummaryLine struct {
	ServiceID   domain.ServiceID `json:"service_id"`
	Homoclave   string           `json:"homoclave"`
	Description string           `json:"description"`
	Quantity    int              `json:"quantity"`
	UnitFee     decimal.Decimal  `json:"unit_fee"`
	Fee         decimal.Decimal  `json:"fee"`
	Tax         decimal.Decimal  `json:"tax"`
	Total       decimal.Decimal  `json:"total"`
}

// SummaryResponse is the body of GET /pago.
type SummaryResponse struct {
	Authority catalogmodels.Authority `json:"authority"`
	Lines     []SummaryLine           `json:"lines"`
	Totals    fees.Totals             `json:"totals"`
	Payer     domain.Payer            `json:"payer"`
	Next      string                  `json:"next"`
}

func newSummaryResponse(sum *capture.Summary, payer domain.Payer, next string) SummaryResponse {
	lines := make([]SummaryLine, len(sum.Calculation.Lines))
	for i, l := range sum.Calculation.Lines {
		lines[i] = SummaryLine{
			ServiceID:   l.Service.ID,
			Homoclave:   l.Service.Homoclave,
			Description: l.Service.Description,
			Quantity:    l.Quantity,
			UnitFee:     l.UnitFee,
			Fee:         l.Fee,
			Tax:         l.Tax,
			Total:       l.Total,
		}
	}
	return SummaryResponse{
		Authority: sum.Authority,
		Lines:     lines,
		Totals:    sum.Calculation.Totals,
		Payer:     payer,
		Next:      next,
	}
}

// ResultResponse renders a finalized record for POST /generar-linea and
// GET /linea-captura.
type ResultResponse struct {
	RecordID        domain.RecordID         `json:"record_id"`
	RequestID       string                  `json:"request_id"`
	Success         bool                    `json:"success"`
	Status          capturemodels.Status    `json:"status"`
	GrandTotal      decimal.Decimal         `json:"grand_total"`
	RequestedOn     time.Time               `json:"requested_on"`
	ValidUntil      time.Time               `json:"valid_until"`
	Document        json.RawMessage         `json:"document"`
	Response        *capturemodels.Response `json:"response,omitempty"`
	DecodedDocument string                  `json:"decoded_document,omitempty"`
}

// newResultResponse re-decodes the stored receipt so the result page renders
// the same way right after generation and on later visits.
func newResultResponse(r *capturemodels.Record) (ResultResponse, error) {
	out := ResultResponse{
		RecordID:    r.ID,
		RequestID:   r.RequestID,
		Status:      r.Status,
		GrandTotal:  r.GrandTotal,
		RequestedOn: r.RequestedOn,
		ValidUntil:  r.ValidUntil,
		Document:    r.Document,
		Response:    r.Response,
	}
	if r.Response == nil {
		return out, nil
	}
	out.Success = r.Response.Success
	if r.Response.EncodedDocument == "" {
		return out, nil
	}
	decoded, err := receipt.DecodeDocument(r.Response.EncodedDocument)
	if err != nil {
		return out, err
	}
	out.DecodedDocument = decoded
	return out, nil
}
