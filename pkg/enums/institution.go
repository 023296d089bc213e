package enums

import "fmt"

// InstitutionStatus captures whether a medical institution is operating.
type InstitutionStatus string

const (
	InstitutionStatusActive   InstitutionStatus = "ACTIVE"
	InstitutionStatusInactive InstitutionStatus = "INACTIVE"
)

var validInstitutionStatuses = []InstitutionStatus{
	InstitutionStatusActive,
	InstitutionStatusInactive,
}

// String implements fmt.Stringer.
func (s InstitutionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InstitutionStatus.
func (s InstitutionStatus) IsValid() bool {
	for _, candidate := range validInstitutionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInstitutionStatus converts raw input into an InstitutionStatus.
func ParseInstitutionStatus(value string) (InstitutionStatus, error) {
	for _, candidate := range validInstitutionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid institution status %q", value)
}
