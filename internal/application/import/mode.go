package importapp

import "github.com/bizlink/backend/internal/domain/shared"

// Mode selects how confirm treats rows whose business number already
// belongs to an existing customer.
type Mode string

const (
	// ModeAdd creates new customers only; colliding rows fail row-level
	ModeAdd Mode = "add"
	// ModeOverwrite merges colliding rows into the existing customer
	ModeOverwrite Mode = "overwrite"
)

// ParseMode parses the wire value of a commit mode
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeAdd:
		return ModeAdd, nil
	case ModeOverwrite:
		return ModeOverwrite, nil
	default:
		return "", shared.NewDomainError("INVALID_MODE", "mode must be \"add\" or \"overwrite\"")
	}
}

// IsValid reports whether the mode is one of the two known variants
func (m Mode) IsValid() bool {
	return m == ModeAdd || m == ModeOverwrite
}

func (m Mode) String() string {
	return string(m)
}
