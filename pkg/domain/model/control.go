package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// Control is a mitigation attached to exactly one risk
type Control struct {
	ID             int64
	OrganizationID types.OrganizationID
	RiskID         int64
	Code           string
	Name           string
	Description    string
	Type           types.ControlType

	Design         types.DIMEScore
	Implementation types.DIMEScore
	Monitoring     types.DIMEScore
	Evaluation     types.DIMEScore

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the control type and the DIME sub-scores
func (c *Control) Validate() error {
	if !c.Type.IsValid() {
		return goerr.New("invalid control type", goerr.V("type", c.Type))
	}
	for name, score := range map[string]types.DIMEScore{
		"design":         c.Design,
		"implementation": c.Implementation,
		"monitoring":     c.Monitoring,
		"evaluation":     c.Evaluation,
	} {
		if err := score.Validate(); err != nil {
			return goerr.Wrap(err, "invalid DIME sub-score", goerr.V("dimension", name))
		}
	}
	return nil
}

// Effectiveness returns the control's mitigation strength in percent
func (c *Control) Effectiveness() float64 {
	return Effectiveness(c.Design, c.Implementation, c.Monitoring, c.Evaluation)
}

// Copy returns a copy of the control
func (c *Control) Copy() *Control {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}
