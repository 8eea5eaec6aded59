// Package domain holds the identifiers and value types shared by the flow,
// the fee builder and the capture service.
package domain

import (
	"strconv"
	"strings"

	dErrors "lineacaptura/pkg/domain-errors"
)

// AuthorityID identifies an issuing authority (dependencia) in the catalog.
type AuthorityID int64

// ServiceID identifies a payable service (tramite) in the catalog.
type ServiceID int64

// RecordID identifies a generated capture-line record.
type RecordID int64

func (id AuthorityID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id ServiceID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id RecordID) String() string    { return strconv.FormatInt(int64(id), 10) }

// ParseAuthorityID parses a positive authority id.
func ParseAuthorityID(s string) (AuthorityID, error) {
	n, err := parsePositive(s, "authority id")
	return AuthorityID(n), err
}

// ParseServiceID parses a positive service id.
func ParseServiceID(s string) (ServiceID, error) {
	n, err := parsePositive(s, "service id")
	return ServiceID(n), err
}

// ParseRecordID parses a positive record id.
func ParseRecordID(s string) (RecordID, error) {
	n, err := parsePositive(s, "record id")
	return RecordID(n), err
}

func parsePositive(s, what string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	return n, nil
}
