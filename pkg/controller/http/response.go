package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
)

type derivedResponse struct {
	ResidualLikelihood int       `json:"residual_likelihood"`
	ResidualImpact     int       `json:"residual_impact"`
	ResidualScore      int       `json:"residual_score"`
	LastComputedAt     time.Time `json:"last_computed_at"`
}

type riskResponse struct {
	ID                 int64           `json:"id"`
	Code               string          `json:"code"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Category           string          `json:"category"`
	Owner              string          `json:"owner"`
	Status             string          `json:"status"`
	InherentLikelihood int             `json:"inherent_likelihood"`
	InherentImpact     int             `json:"inherent_impact"`
	InherentScore      int             `json:"inherent_score"`
	Derived            derivedResponse `json:"derived"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type controlResponse struct {
	ID             int64     `json:"id"`
	RiskID         int64     `json:"risk_id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Type           string    `json:"type"`
	Design         int       `json:"design"`
	Implementation int       `json:"implementation"`
	Monitoring     int       `json:"monitoring"`
	Evaluation     int       `json:"evaluation"`
	Effectiveness  float64   `json:"effectiveness"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type controlResultResponse struct {
	Control controlResponse `json:"control"`
	Risk    riskResponse    `json:"risk"`
}

type activePeriodResponse struct {
	Period    string    `json:"period"`
	Cadence   string    `json:"cadence"`
	UpdatedAt time.Time `json:"updated_at"`
}

type commitResponse struct {
	ID          string    `json:"id"`
	Period      string    `json:"period"`
	CommittedBy string    `json:"committed_by"`
	CommittedAt time.Time `json:"committed_at"`
	Note        string    `json:"note"`
	RowCount    int       `json:"row_count"`
}

type commitResultResponse struct {
	Commit       commitResponse `json:"commit"`
	ActivePeriod string         `json:"active_period"`
}

type historyResponse struct {
	RiskID             int64     `json:"risk_id"`
	Period             string    `json:"period"`
	CommitID           string    `json:"commit_id"`
	Code               string    `json:"code"`
	Title              string    `json:"title"`
	Category           string    `json:"category"`
	Owner              string    `json:"owner"`
	Status             string    `json:"status"`
	InherentLikelihood int       `json:"inherent_likelihood"`
	InherentImpact     int       `json:"inherent_impact"`
	InherentScore      int       `json:"inherent_score"`
	ResidualLikelihood int       `json:"residual_likelihood"`
	ResidualImpact     int       `json:"residual_impact"`
	ResidualScore      int       `json:"residual_score"`
	ResidualComputedAt time.Time `json:"residual_computed_at"`
	SnapshotAt         time.Time `json:"snapshot_at"`
}

type periodHistoryResponse struct {
	Commit  commitResponse    `json:"commit"`
	Entries []historyResponse `json:"entries"`
}

type codeResponse struct {
	Code       string `json:"code"`
	Sequential bool   `json:"sequential"`
}

func newDerivedResponse(d model.DerivedState) derivedResponse {
	return derivedResponse{
		ResidualLikelihood: d.ResidualLikelihood.Int(),
		ResidualImpact:     d.ResidualImpact.Int(),
		ResidualScore:      d.ResidualScore,
		LastComputedAt:     d.LastComputedAt,
	}
}

func newRiskResponse(r *model.Risk) riskResponse {
	return riskResponse{
		ID:                 r.ID,
		Code:               r.Code,
		Title:              r.Title,
		Description:        r.Description,
		Category:           r.Category.String(),
		Owner:              r.Owner,
		Status:             r.Status.String(),
		InherentLikelihood: r.InherentLikelihood.Int(),
		InherentImpact:     r.InherentImpact.Int(),
		InherentScore:      r.InherentScore(),
		Derived:            newDerivedResponse(r.Derived),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func newControlResponse(c *model.Control) controlResponse {
	return controlResponse{
		ID:             c.ID,
		RiskID:         c.RiskID,
		Code:           c.Code,
		Name:           c.Name,
		Description:    c.Description,
		Type:           c.Type.String(),
		Design:         c.Design.Int(),
		Implementation: c.Implementation.Int(),
		Monitoring:     c.Monitoring.Int(),
		Evaluation:     c.Evaluation.Int(),
		Effectiveness:  c.Effectiveness(),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func newCommitResponse(c *model.PeriodCommit) commitResponse {
	return commitResponse{
		ID:          c.ID,
		Period:      c.Period.ID().String(),
		CommittedBy: c.CommittedBy,
		CommittedAt: c.CommittedAt,
		Note:        c.Note,
		RowCount:    c.RowCount,
	}
}

func newHistoryResponse(h *model.RiskHistory) historyResponse {
	return historyResponse{
		RiskID:             h.RiskID,
		Period:             h.Period.ID().String(),
		CommitID:           h.CommitID,
		Code:               h.Code,
		Title:              h.Title,
		Category:           h.Category.String(),
		Owner:              h.Owner,
		Status:             h.Status.String(),
		InherentLikelihood: h.InherentLikelihood.Int(),
		InherentImpact:     h.InherentImpact.Int(),
		InherentScore:      h.InherentScore,
		ResidualLikelihood: h.ResidualLikelihood.Int(),
		ResidualImpact:     h.ResidualImpact.Int(),
		ResidualScore:      h.ResidualScore,
		ResidualComputedAt: h.ResidualComputedAt,
		SnapshotAt:         h.SnapshotAt,
	}
}

func newHistoryResponses(histories []*model.RiskHistory) []historyResponse {
	resp := make([]historyResponse, len(histories))
	for i, h := range histories {
		resp[i] = newHistoryResponse(h)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.From(r.Context()).Error("failed to write response", "error", err.Error())
	}
}
