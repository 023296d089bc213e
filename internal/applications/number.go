package applications

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const numberPrefix = "APP-"

// NumberPattern matches every application number produced by NewNumber.
var NumberPattern = regexp.MustCompile(`^APP-[0-9A-F]{8}$`)

// NumberGenerator returns a candidate application number.
type NumberGenerator func() string

// NewNumber builds "APP-" followed by the first eight hex digits of a random
// UUID, upper-cased.
func NewNumber() string {
	return numberPrefix + strings.ToUpper(uuid.NewString()[:8])
}
