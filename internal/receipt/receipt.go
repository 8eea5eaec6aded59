// Package receipt interprets payment authority responses. Two response
// shapes are accepted: an "Acuse" envelope and a flat object whose keys vary
// in case, spacing and underscores.
package receipt

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Messages reported on the receipt.
const (
	MessageProcessed       = "authority response processed"
	MessageMissingDocument = "authority response does not contain the encoded document"
	MessageBadEncoding     = "invalid document encoding"
	MessageUnprocessable   = "authority response could not be processed"
)

// Error keys used in Receipt.Errors.
const (
	ErrorMissingDocument = "missing_document"
	ErrorDecode          = "decode"
	ErrorPanic           = "exception"
)

// Shape identifies which response layout was recognised.
type Shape string

const (
	ShapeAcuse Shape = "acuse"
	ShapeFlat  Shape = "flat"
)

// Aliases per field for flat responses, in priority order.
var (
	DocumentAliases    = []string{"formatoHTML", "FormatoHTML", "htmlCodificado", "HTML"}
	CaptureLineAliases = []string{"linea Captura", "LineaCaptura", "lineaCaptura", "linea_captura"}
	AmountAliases      = []string{"importe", "Importe", "monto", "Monto"}
	ValidityAliases    = []string{"fechaVigencia", "FechaVigencia", "vigencia", "Vigencia"}
)

// Fields are the values extracted from a response.
type Fields struct {
	DocumentID      string           `json:"document_id,omitempty"`
	PaymentType     string           `json:"payment_type,omitempty"`
	EncodedDocument string           `json:"encoded_document,omitempty"`
	Result          string           `json:"result,omitempty"`
	CaptureLine     string           `json:"capture_line,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	ValidUntil      string           `json:"valid_until,omitempty"`
	Errors          json.RawMessage  `json:"errors,omitempty"`

	RequestID    string `json:"request_id,omitempty"`
	ProcessedAt  string `json:"processed_at,omitempty"`
	ResponseCode string `json:"response_code,omitempty"`
}

// Receipt is the normalized interpretation of one response.
type Receipt struct {
	Success         bool              `json:"success"`
	Message         string            `json:"message"`
	Shape           Shape             `json:"shape,omitempty"`
	Fields          Fields            `json:"fields"`
	DecodedDocument string            `json:"decoded_document,omitempty"`
	Errors          map[string]string `json:"errors,omitempty"`
	RawBody         string            `json:"raw_body"`
}

func (r *Receipt) fail(msg, key, detail string) *Receipt {
	r.Success = false
	r.Message = msg
	if r.Errors == nil {
		r.Errors = map[string]string{}
	}
	r.Errors[key] = detail
	return r
}

// Normalize interprets body. It never panics; anything unexpected is
// reported as an unsuccessful receipt that keeps the raw body.
func Normalize(body []byte) (rec *Receipt) {
	rec = &Receipt{RawBody: string(body)}
	defer func() {
		if p := recover(); p != nil {
			rec = &Receipt{RawBody: string(body)}
			rec.fail(MessageUnprocessable, ErrorPanic, fmt.Sprint(p))
		}
	}()

	root := gjson.ParseBytes(body)
	if acuse := root.Get("Acuse"); acuse.IsObject() {
		rec.Shape = ShapeAcuse
		rec.Fields = acuseFields(acuse)
	} else {
		rec.Shape = ShapeFlat
		rec.Fields = flatFields(root)
	}

	if rec.Fields.EncodedDocument == "" {
		return rec.fail(MessageMissingDocument, ErrorMissingDocument, "the response has no encoded document")
	}
	decoded, err := DecodeDocument(rec.Fields.EncodedDocument)
	if err != nil {
		return rec.fail(MessageBadEncoding, ErrorDecode, err.Error())
	}
	rec.Success = true
	rec.Message = MessageProcessed
	rec.DecodedDocument = decoded
	return rec
}

func acuseFields(acuse gjson.Result) Fields {
	f := Fields{
		DocumentID:      text(acuse.Get("IdDocumento")),
		PaymentType:     text(acuse.Get("TipoPago")),
		EncodedDocument: text(acuse.Get("HTML")),
		Result:          text(acuse.Get("Resultado")),
		CaptureLine:     text(acuse.Get("LineaCaptura")),
		Amount:          amount(acuse.Get("Importe")),
		ValidUntil:      text(acuse.Get("FechaVigencia")),
		RequestID:       text(acuse.Get("Solicitud")),
		ProcessedAt:     text(acuse.Get("FechaProceso")),
		ResponseCode:    text(acuse.Get("CodigoRespuesta")),
	}
	if errs := acuse.Get("Errores"); errs.Exists() && errs.Type != gjson.Null {
		f.Errors = json.RawMessage(errs.Raw)
	}
	return f
}

func flatFields(root gjson.Result) Fields {
	idx := NewIndex(root)
	return Fields{
		EncodedDocument: text(idx.Lookup(DocumentAliases...)),
		CaptureLine:     text(idx.Lookup(CaptureLineAliases...)),
		Amount:          amount(idx.Lookup(AmountAliases...)),
		ValidUntil:      text(idx.Lookup(ValidityAliases...)),
	}
}

// text renders scalars as strings. Objects, arrays and null yield "".
func text(v gjson.Result) string {
	switch v.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return v.String()
	default:
		return ""
	}
}

func amount(v gjson.Result) *decimal.Decimal {
	s := text(v)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
