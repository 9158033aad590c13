package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// SequenceCounter is one (organization, name) counter row
type SequenceCounter struct {
	OrganizationID types.OrganizationID
	Name           types.CounterName
	Value          int64
	UpdatedAt      time.Time
}

// FormatCode renders a sequential human readable code, e.g. "RISK-OPS-0007"
func FormatCode(name types.CounterName, value int64) string {
	return fmt.Sprintf("%s-%04d", name, value)
}

// FallbackCode renders a non-sequential code from a high resolution clock. It
// is used when the counter lock cannot be taken in time; the "X" marker keeps
// it from ever colliding with a FormatCode value.
func FallbackCode(name types.CounterName, at time.Time) string {
	return fmt.Sprintf("%s-X%s", name, strings.ToUpper(strconv.FormatInt(at.UnixNano(), 36)))
}
