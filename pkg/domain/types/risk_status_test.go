package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

func TestRiskStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status types.RiskStatus
		want   bool
	}{
		{name: "open", status: types.RiskStatusOpen, want: true},
		{name: "monitoring", status: types.RiskStatusMonitoring, want: true},
		{name: "closed", status: types.RiskStatusClosed, want: true},
		{name: "archived", status: types.RiskStatusArchived, want: true},
		{name: "deleted is not a status", status: types.RiskStatus("DELETED"), want: false},
		{name: "empty", status: types.RiskStatus(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.status.IsValid()).Equal(tt.want)
		})
	}
}

func TestParseRiskStatus(t *testing.T) {
	for _, s := range types.AllRiskStatuses() {
		parsed, err := types.ParseRiskStatus(s.String())
		gt.NoError(t, err).Required()
		gt.Value(t, parsed).Equal(s)
	}

	_, err := types.ParseRiskStatus("open")
	gt.Value(t, err).NotNil()
}

func TestParseControlType(t *testing.T) {
	ct, err := types.ParseControlType("LIKELIHOOD_REDUCING")
	gt.NoError(t, err).Required()
	gt.Value(t, ct).Equal(types.ControlTypeLikelihood)

	ct, err = types.ParseControlType("IMPACT_REDUCING")
	gt.NoError(t, err).Required()
	gt.Value(t, ct).Equal(types.ControlTypeImpact)

	_, err = types.ParseControlType("DETECTIVE")
	gt.Value(t, err).NotNil()
}
