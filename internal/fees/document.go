package fees

import (
	"encoding/json"

	"lineacaptura/pkg/domain"
)

// Concept and transaction codes used by the payment authority.
const (
	GroupingFee    = "P"
	GroupingTax    = "S"
	TaxConceptCode = "130009"
)

// TransactionCodes are repeated on every concept, each carrying the concept amount.
var TransactionCodes = []string{"4011", "4243", "4423"}

// Document is the request sent to the payment authority.
type Document struct {
	GeneralData GeneralData `json:"DatosGenerales"`
	Procedures  Procedures  `json:"Tramites"`
}

// GeneralData identifies the request, the authority and the payer.
type GeneralData struct {
	RequestID     string
	AuthorityCode string
	AdminUnit     string
	Payer         domain.Payer
	CaptureLine   CaptureLineData
}

// CaptureLineData carries the requested amount and validity.
type CaptureLineData struct {
	RequestedAt string `json:"FechaSolicitud"`
	Amount      int64  `json:"Importe"`
	ValidUntil  string `json:"FechaVigencia"`
}

type generalHeader struct {
	RequestID     string `json:"Solicitud"`
	AuthorityCode string `json:"CveDependencia"`
	AdminUnit     string `json:"UnidadAdministrativa"`
	PayerType     string `json:"TipoPersona"`
	TaxID         string `json:"RFC"`
}

type individualGeneralData struct {
	generalHeader
	NationalID      string          `json:"CURP"`
	FirstName       string          `json:"Nombre"`
	PaternalSurname string          `json:"ApellidoPaterno"`
	MaternalSurname *string         `json:"ApellidoMaterno"`
	CaptureLine     CaptureLineData `json:"DatosLineaCaptura"`
}

type organizationGeneralData struct {
	generalHeader
	LegalName   string          `json:"RazonSocial"`
	CaptureLine CaptureLineData `json:"DatosLineaCaptura"`
}

// MarshalJSON renders the payer-specific field set: CURP and names for
// individuals, RazonSocial for organizations.
func (g GeneralData) MarshalJSON() ([]byte, error) {
	header := generalHeader{
		RequestID:     g.RequestID,
		AuthorityCode: g.AuthorityCode,
		AdminUnit:     g.AdminUnit,
		PayerType:     string(g.Payer.Type()),
		TaxID:         g.Payer.TaxID(),
	}
	if in := g.Payer.Individual; in != nil {
		out := individualGeneralData{
			generalHeader:   header,
			NationalID:      in.NationalID,
			FirstName:       in.FirstName,
			PaternalSurname: in.PaternalSurname,
			CaptureLine:     g.CaptureLine,
		}
		if in.MaternalSurname != "" {
			maternal := in.MaternalSurname
			out.MaternalSurname = &maternal
		}
		return json.Marshal(out)
	}
	out := organizationGeneralData{generalHeader: header, CaptureLine: g.CaptureLine}
	if org := g.Payer.Organization; org != nil {
		out.LegalName = org.LegalName
	}
	return json.Marshal(out)
}

// Procedures wraps the per-service entries.
type Procedures struct {
	Items []Procedure `json:"Tramite"`
}

// Procedure is one selected service on the wire.
type Procedure struct {
	Number       int      `json:"NumeroTramite"`
	Homoclave    string   `json:"Homoclave"`
	Variant      string   `json:"Variante"`
	ConceptCount int      `json:"NumeroConceptos"`
	Total        Amount   `json:"TotalTramite"`
	Concepts     Concepts `json:"Conceptos"`
}

type Concepts struct {
	Items []Concept `json:"Concepto"`
}

// Concept is a fee or tax line of a procedure.
type Concept struct {
	Sequence           int          `json:"NumeroSecuencia"`
	Code               string       `json:"ClaveConcepto"`
	Grouping           Grouping     `json:"Agrupador"`
	Icep               IcepData     `json:"DatosIcep"`
	TotalContributions Amount       `json:"TotalContribuciones"`
	Total              Amount       `json:"TotalConcepto"`
	Payments           Transactions `json:"DP"`
}

type Grouping struct {
	ID   int    `json:"IdAgrupador"`
	Type string `json:"TipoAgrupador"`
}

type IcepData struct {
	PeriodicityCode string `json:"ClavePeriodicidad"`
	PeriodCode      string `json:"ClavePeriodo"`
	AccruedOn       string `json:"FechaCausacion"`
}

type Transactions struct {
	Items []Transaction `json:"TransaccionP"`
}

type Transaction struct {
	Code  string `json:"ClaveTransaccion"`
	Value Amount `json:"ValorTransaccion"`
}

// ConceptTotal sums the amounts of every concept in the document.
func (d Document) ConceptTotal() Amount {
	var sum Amount
	for _, p := range d.Procedures.Items {
		for _, c := range p.Concepts.Items {
			sum.Decimal = sum.Add(c.Total.Decimal)
		}
	}
	return sum
}
