package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

type createRiskRequest struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	Category           string `json:"category"`
	Owner              string `json:"owner"`
	Status             string `json:"status"`
	InherentLikelihood int    `json:"inherent_likelihood"`
	InherentImpact     int    `json:"inherent_impact"`
}

type updateRiskRequest struct {
	Title              *string `json:"title"`
	Description        *string `json:"description"`
	Category           *string `json:"category"`
	Owner              *string `json:"owner"`
	Status             *string `json:"status"`
	InherentLikelihood *int    `json:"inherent_likelihood"`
	InherentImpact     *int    `json:"inherent_impact"`
}

func orgOf(r *http.Request) types.OrganizationID {
	return types.OrganizationID(chi.URLParam(r, "orgID"))
}

func (s *Server) createRisk(w http.ResponseWriter, r *http.Request) {
	var req createRiskRequest
	if err := decodeWrite(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	risk, err := s.uc.Risk.CreateRisk(r.Context(), orgOf(r), usecase.CreateRiskInput{
		Title:              req.Title,
		Description:        req.Description,
		Category:           types.CategoryID(req.Category),
		Owner:              req.Owner,
		Status:             types.RiskStatus(req.Status),
		InherentLikelihood: types.Likelihood(req.InherentLikelihood),
		InherentImpact:     types.Impact(req.InherentImpact),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newRiskResponse(risk))
}

func (s *Server) updateRisk(w http.ResponseWriter, r *http.Request) {
	riskID, err := pathInt64(r, "riskID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateRiskRequest
	if err := decodeWrite(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	input := usecase.UpdateRiskInput{
		Title:       req.Title,
		Description: req.Description,
		Owner:       req.Owner,
	}
	if req.Category != nil {
		v := types.CategoryID(*req.Category)
		input.Category = &v
	}
	if req.Status != nil {
		v := types.RiskStatus(*req.Status)
		input.Status = &v
	}
	if req.InherentLikelihood != nil {
		v := types.Likelihood(*req.InherentLikelihood)
		input.InherentLikelihood = &v
	}
	if req.InherentImpact != nil {
		v := types.Impact(*req.InherentImpact)
		input.InherentImpact = &v
	}

	risk, err := s.uc.Risk.UpdateRisk(r.Context(), orgOf(r), riskID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newRiskResponse(risk))
}

func (s *Server) getRisk(w http.ResponseWriter, r *http.Request) {
	riskID, err := pathInt64(r, "riskID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	risk, err := s.uc.Risk.GetRisk(r.Context(), orgOf(r), riskID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newRiskResponse(risk))
}

func (s *Server) listRisks(w http.ResponseWriter, r *http.Request) {
	status := types.RiskStatus(r.URL.Query().Get("status"))

	risks, err := s.uc.Risk.ListRisks(r.Context(), orgOf(r), status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]riskResponse, len(risks))
	for i, risk := range risks {
		resp[i] = newRiskResponse(risk)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"risks": resp})
}

func (s *Server) getDerived(w http.ResponseWriter, r *http.Request) {
	riskID, err := pathInt64(r, "riskID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	state, err := s.uc.Residual.GetDerivedState(r.Context(), orgOf(r), riskID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newDerivedResponse(*state))
}

func (s *Server) nextSequence(w http.ResponseWriter, r *http.Request) {
	name := types.CounterName(chi.URLParam(r, "name"))

	code, err := s.uc.Sequence.Generate(r.Context(), orgOf(r), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, codeResponse{Code: code.Value, Sequential: code.Sequential})
}
