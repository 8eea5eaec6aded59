package domain

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "lineacaptura/pkg/domain-errors"
)

// Selection limits.
const (
	MaxSelectedServices = 10
	MinQuantity         = 1
	MaxQuantity         = 999
)

// SelectedService is one chosen service and how many units are paid.
type SelectedService struct {
	ServiceID ServiceID `json:"service_id"`
	Quantity  int       `json:"quantity"`
}

// Selection is the ordered list of chosen services. Order is significant:
// the last entry absorbs the rounding residual.
type Selection []SelectedService

// Validate enforces count, quantity range and id uniqueness.
func (s Selection) Validate() error {
	if len(s) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one service must be selected")
	}
	if len(s) > MaxSelectedServices {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d services can be selected", MaxSelectedServices))
	}
	seen := make(map[ServiceID]struct{}, len(s))
	for _, item := range s {
		if item.ServiceID <= 0 {
			return dErrors.New(dErrors.CodeValidation, "invalid service id")
		}
		if item.Quantity < MinQuantity || item.Quantity > MaxQuantity {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("quantity for service %d must be between %d and %d", item.ServiceID, MinQuantity, MaxQuantity))
		}
		if _, dup := seen[item.ServiceID]; dup {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("service %d selected more than once", item.ServiceID))
		}
		seen[item.ServiceID] = struct{}{}
	}
	return nil
}

// IDs returns the service ids in selection order.
func (s Selection) IDs() []ServiceID {
	ids := make([]ServiceID, len(s))
	for i, item := range s {
		ids[i] = item.ServiceID
	}
	return ids
}

// String renders the persisted "id:qty,id:qty" form.
func (s Selection) String() string {
	parts := make([]string, len(s))
	for i, item := range s {
		parts[i] = item.ServiceID.String() + ":" + strconv.Itoa(item.Quantity)
	}
	return strings.Join(parts, ",")
}

// ParseSelection parses the "id:qty,id:qty" form produced by String.
func ParseSelection(raw string) (Selection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out Selection
	for _, part := range strings.Split(raw, ",") {
		idPart, qtyPart, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("malformed selection entry %q", part))
		}
		id, err := ParseServiceID(idPart)
		if err != nil {
			return nil, err
		}
		qty, err := strconv.Atoi(strings.TrimSpace(qtyPart))
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("malformed quantity in %q", part))
		}
		out = append(out, SelectedService{ServiceID: id, Quantity: qty})
	}
	return out, nil
}
