package fees

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"lineacaptura/internal/catalog/models"
	"lineacaptura/pkg/domain"
	dErrors "lineacaptura/pkg/domain-errors"
)

type BuilderSuite struct {
	suite.Suite
	builder   *Builder
	authority models.Authority
	at        time.Time
	person    domain.Payer
	company   domain.Payer
}

func TestBuilderSuite(t *testing.T) {
	suite.Run(t, new(BuilderSuite))
}

func (s *BuilderSuite) SetupTest() {
	loc, err := time.LoadLocation("America/Mexico_City")
	s.Require().NoError(err)
	s.builder = NewBuilder(loc)
	s.authority = models.Authority{ID: 1, Name: "Agencia Reguladora", ShortCode: "ARTF", AdminUnit: "100"}
	s.at = time.Date(2026, time.January, 31, 16, 5, 0, 0, loc)

	s.person, err = domain.NewIndividualPayer(domain.Individual{
		NationalID:      "gode561231hdfrrn09",
		TaxID:           "GODE561231AB1",
		FirstName:       "Elena",
		PaternalSurname: "Godoy",
	})
	s.Require().NoError(err)
	s.company, err = domain.NewOrganizationPayer(domain.Organization{TaxID: "ABC123456T12", LegalName: "Transportes del Norte SA"})
	s.Require().NoError(err)
}

func (s *BuilderSuite) items() []Item {
	taxed := service(10, "500.00", true)
	taxed.PeriodicityCode = "0"
	taxed.PeriodCode = "035"
	untaxed := service(11, "123.45", false)
	untaxed.AccountingCode = "400020"
	untaxed.GroupingID = "not-a-number"
	return []Item{{Service: taxed, Quantity: 1}, {Service: untaxed, Quantity: 1}}
}

func (s *BuilderSuite) build(payer domain.Payer) *Result {
	res, err := s.builder.Build(Input{
		RecordID:    42,
		Authority:   s.authority,
		Items:       s.items(),
		Payer:       payer,
		GeneratedAt: s.at,
	})
	s.Require().NoError(err)
	return res
}

func (s *BuilderSuite) TestRequestIdentifierAndDates() {
	res := s.build(s.person)

	s.Equal("ARTF100260000000042", res.RequestID)
	gd := res.Document.GeneralData
	s.Equal(res.RequestID, gd.RequestID)
	s.Equal("31/01/2026 16:05", gd.CaptureLine.RequestedAt)
	// January 31st plus one month normalizes into March.
	s.Equal("03/03/2026", gd.CaptureLine.ValidUntil)
	s.Equal(int64(703), gd.CaptureLine.Amount)
	s.Equal(s.at.AddDate(0, 1, 0), res.ValidUntil)
}

func (s *BuilderSuite) TestConceptsAreNumberedGlobally() {
	procs := s.build(s.person).Document.Procedures.Items
	s.Require().Len(procs, 2)

	first := procs[0]
	s.Equal(1, first.Number)
	s.Equal(2, first.ConceptCount)
	s.Require().Len(first.Concepts.Items, 2)
	fee, tax := first.Concepts.Items[0], first.Concepts.Items[1]
	s.Equal(1, fee.Sequence)
	s.Equal("400010", fee.Code)
	s.Equal(Grouping{ID: 7, Type: GroupingFee}, fee.Grouping)
	s.Equal(IcepData{PeriodicityCode: "0", PeriodCode: "035", AccruedOn: "31/01/2026"}, fee.Icep)
	s.Equal(2, tax.Sequence)
	s.Equal(TaxConceptCode, tax.Code)
	s.Equal(GroupingTax, tax.Grouping.Type)
	s.Equal("80.00", tax.Total.StringFixed(2))

	second := procs[1]
	s.Equal(2, second.Number)
	s.Equal(1, second.ConceptCount)
	only := second.Concepts.Items[0]
	s.Equal(3, only.Sequence)
	s.Equal("400020", only.Code)
	s.Equal(0, only.Grouping.ID)
	s.Equal("123.00", only.Total.StringFixed(2))
	s.Equal("123.00", second.Total.StringFixed(2))
}

func (s *BuilderSuite) TestEveryConceptCarriesThreeTransactions() {
	for _, p := range s.build(s.person).Document.Procedures.Items {
		for _, c := range p.Concepts.Items {
			s.Require().Len(c.Payments.Items, 3)
			for i, txn := range c.Payments.Items {
				s.Equal(TransactionCodes[i], txn.Code)
				s.True(txn.Value.Equal(c.Total.Decimal))
			}
			s.True(c.TotalContributions.Equal(c.Total.Decimal))
		}
	}
}

func (s *BuilderSuite) TestConceptTotalMatchesGrandTotal() {
	res := s.build(s.company)
	s.Equal("703.00", res.Document.ConceptTotal().StringFixed(2))
}

func (s *BuilderSuite) TestIndividualWireFormat() {
	raw, err := json.Marshal(s.build(s.person).Document)
	s.Require().NoError(err)

	var wire map[string]map[string]any
	s.Require().NoError(json.Unmarshal(raw, &wire))
	gd := wire["DatosGenerales"]
	s.Equal("F", gd["TipoPersona"])
	s.Equal("GODE561231HDFRRN09", gd["CURP"])
	s.Equal("Elena", gd["Nombre"])
	s.Equal("Godoy", gd["ApellidoPaterno"])
	s.Contains(gd, "ApellidoMaterno")
	s.Nil(gd["ApellidoMaterno"])
	s.NotContains(gd, "RazonSocial")
	s.Equal(map[string]any{
		"FechaSolicitud": "31/01/2026 16:05",
		"Importe":        float64(703),
		"FechaVigencia":  "03/03/2026",
	}, gd["DatosLineaCaptura"])
	s.Contains(string(raw), `"TotalTramite":580.00`)
	s.Contains(string(raw), `"ValorTransaccion":79.55`)
}

func (s *BuilderSuite) TestOrganizationWireFormat() {
	raw, err := json.Marshal(s.build(s.company).Document)
	s.Require().NoError(err)

	var wire map[string]map[string]any
	s.Require().NoError(json.Unmarshal(raw, &wire))
	gd := wire["DatosGenerales"]
	s.Equal("M", gd["TipoPersona"])
	s.Equal("ABC123456T12", gd["RFC"])
	s.Equal("Transportes del Norte SA", gd["RazonSocial"])
	for _, key := range []string{"CURP", "Nombre", "ApellidoPaterno", "ApellidoMaterno"} {
		s.NotContains(gd, key)
	}
}

func (s *BuilderSuite) TestSnapshot() {
	snap := s.build(s.person).Snapshot

	s.Equal("2026-01-31 16:05:00", snap.GeneratedAt)
	s.Equal(AuthoritySnapshot{ID: 1, Name: "Agencia Reguladora", ShortCode: "ARTF", AdminUnit: "100"}, snap.Authority)
	s.Equal(2, snap.Summary.ServiceCount)
	s.Equal(int64(703), snap.Summary.GrandTotal)
	s.Equal("623.45", snap.Summary.FeeSubtotal.StringFixed(2))
	s.Equal("80.00", snap.Summary.TaxSubtotal.StringFixed(2))

	s.Require().Len(snap.Services, 2)
	taxed := snap.Services[0]
	s.Equal(domain.ServiceID(10), taxed.ServiceID)
	s.Equal("80.00", taxed.UnitTax.StringFixed(2))
	s.Equal("580.00", taxed.Total.StringFixed(2))
	untaxed := snap.Services[1]
	s.Equal("0.00", untaxed.UnitTax.StringFixed(2))
	s.Equal("123.45", untaxed.Total.StringFixed(2))
	s.Nil(untaxed.ValidFrom)
}

func (s *BuilderSuite) TestRejectsUnassignedRecord() {
	_, err := s.builder.Build(Input{Authority: s.authority, Items: s.items(), Payer: s.person, GeneratedAt: s.at})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *BuilderSuite) TestRejectsInvalidPayer() {
	_, err := s.builder.Build(Input{RecordID: 1, Authority: s.authority, Items: s.items(), GeneratedAt: s.at})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestRequestID(t *testing.T) {
	at := time.Date(2031, time.June, 1, 0, 0, 0, 0, time.UTC)
	id := RequestID(models.Authority{ShortCode: "IMT", AdminUnit: "210"}, 1234567, at)
	assert.Equal(t, "IMT210310001234567", id)
	require.Len(t, id, len("IMT")+len("210")+2+10)
}
