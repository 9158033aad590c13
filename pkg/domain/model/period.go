package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// ErrInvalidPeriod is returned for malformed period identifiers
var ErrInvalidPeriod = goerr.New("invalid period")

// PeriodID is the string form of a Period, e.g. "2026-Q3", "2026-M07", "2026-H1", "2026"
type PeriodID string

// String returns the string representation of PeriodID
func (p PeriodID) String() string {
	return string(p)
}

// Period is a chronological bucket: the Number-th sub-period of Year under Cadence
type Period struct {
	Year    int
	Number  int
	Cadence types.Cadence
}

var periodPattern = regexp.MustCompile(`^(\d{4})(?:-([QMH])(\d{1,2}))?$`)

// NewPeriod builds and validates a period
func NewPeriod(year, number int, cadence types.Cadence) (Period, error) {
	p := Period{Year: year, Number: number, Cadence: cadence}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PeriodContaining returns the period of the given cadence that contains t (UTC)
func PeriodContaining(t time.Time, cadence types.Cadence) Period {
	t = t.UTC()
	perYear := cadence.PeriodsPerYear()
	if perYear == 0 {
		cadence, perYear = types.CadenceQuarterly, 4
	}
	monthsPer := 12 / perYear
	return Period{
		Year:    t.Year(),
		Number:  (int(t.Month())-1)/monthsPer + 1,
		Cadence: cadence,
	}
}

// Validate checks the cadence and that Number is within the year
func (p Period) Validate() error {
	perYear := p.Cadence.PeriodsPerYear()
	if perYear == 0 {
		return goerr.Wrap(ErrInvalidPeriod, "unknown cadence", goerr.V("cadence", p.Cadence))
	}
	if p.Year < 1 || p.Year > 9999 {
		return goerr.Wrap(ErrInvalidPeriod, "year out of range", goerr.V("year", p.Year))
	}
	if p.Number < 1 || p.Number > perYear {
		return goerr.Wrap(ErrInvalidPeriod, "period number out of range",
			goerr.V("number", p.Number), goerr.V("cadence", p.Cadence))
	}
	return nil
}

// ID returns the canonical identifier of the period
func (p Period) ID() PeriodID {
	switch p.Cadence {
	case types.CadenceQuarterly:
		return PeriodID(fmt.Sprintf("%04d-Q%d", p.Year, p.Number))
	case types.CadenceMonthly:
		return PeriodID(fmt.Sprintf("%04d-M%02d", p.Year, p.Number))
	case types.CadenceHalfYearly:
		return PeriodID(fmt.Sprintf("%04d-H%d", p.Year, p.Number))
	default:
		return PeriodID(fmt.Sprintf("%04d", p.Year))
	}
}

// String implements fmt.Stringer
func (p Period) String() string {
	return p.ID().String()
}

// Next returns the deterministic successor: the following sub-period, rolling
// into the first sub-period of the next year after the last one.
func (p Period) Next() Period {
	if p.Number >= p.Cadence.PeriodsPerYear() {
		return Period{Year: p.Year + 1, Number: 1, Cadence: p.Cadence}
	}
	return Period{Year: p.Year, Number: p.Number + 1, Cadence: p.Cadence}
}

// Before reports whether p is chronologically earlier than other. Periods of
// different cadences are compared by their first month.
func (p Period) Before(other Period) bool {
	return p.startMonth() < other.startMonth()
}

func (p Period) startMonth() int {
	perYear := p.Cadence.PeriodsPerYear()
	if perYear == 0 {
		perYear = 1
	}
	return p.Year*12 + (p.Number-1)*(12/perYear)
}

// ParsePeriod parses a PeriodID back into a Period
func ParsePeriod(id PeriodID) (Period, error) {
	m := periodPattern.FindStringSubmatch(string(id))
	if m == nil {
		return Period{}, goerr.Wrap(ErrInvalidPeriod, "malformed period identifier", goerr.V("period", id))
	}

	year, _ := strconv.Atoi(m[1])
	if m[2] == "" {
		return NewPeriod(year, 1, types.CadenceYearly)
	}

	number, _ := strconv.Atoi(m[3])
	var cadence types.Cadence
	switch m[2] {
	case "Q":
		cadence = types.CadenceQuarterly
	case "M":
		cadence = types.CadenceMonthly
	case "H":
		cadence = types.CadenceHalfYearly
	}

	p, err := NewPeriod(year, number, cadence)
	if err != nil {
		return Period{}, err
	}
	if p.ID() != id {
		return Period{}, goerr.Wrap(ErrInvalidPeriod, "non-canonical period identifier",
			goerr.V("period", id), goerr.V("canonical", p.ID()))
	}
	return p, nil
}
