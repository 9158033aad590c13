package http

import (
	"net/http"

	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

type createControlRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Type           string `json:"type"`
	Design         int    `json:"design"`
	Implementation int    `json:"implementation"`
	Monitoring     int    `json:"monitoring"`
	Evaluation     int    `json:"evaluation"`
}

type updateControlRequest struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	Type           *string `json:"type"`
	Design         *int    `json:"design"`
	Implementation *int    `json:"implementation"`
	Monitoring     *int    `json:"monitoring"`
	Evaluation     *int    `json:"evaluation"`
}

func dimePtr(v *int) *types.DIMEScore {
	if v == nil {
		return nil
	}
	score := types.DIMEScore(*v)
	return &score
}

func (s *Server) createControl(w http.ResponseWriter, r *http.Request) {
	riskID, err := pathInt64(r, "riskID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createControlRequest
	if err := decodeWrite(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.uc.Control.CreateControl(r.Context(), orgOf(r), usecase.CreateControlInput{
		RiskID:         riskID,
		Name:           req.Name,
		Description:    req.Description,
		Type:           types.ControlType(req.Type),
		Design:         types.DIMEScore(req.Design),
		Implementation: types.DIMEScore(req.Implementation),
		Monitoring:     types.DIMEScore(req.Monitoring),
		Evaluation:     types.DIMEScore(req.Evaluation),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, controlResultResponse{
		Control: newControlResponse(result.Control),
		Risk:    newRiskResponse(result.Risk),
	})
}

func (s *Server) updateControl(w http.ResponseWriter, r *http.Request) {
	controlID, err := pathInt64(r, "controlID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateControlRequest
	if err := decodeWrite(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	input := usecase.UpdateControlInput{
		Name:           req.Name,
		Description:    req.Description,
		Design:         dimePtr(req.Design),
		Implementation: dimePtr(req.Implementation),
		Monitoring:     dimePtr(req.Monitoring),
		Evaluation:     dimePtr(req.Evaluation),
	}
	if req.Type != nil {
		v := types.ControlType(*req.Type)
		input.Type = &v
	}

	result, err := s.uc.Control.UpdateControl(r.Context(), orgOf(r), controlID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, controlResultResponse{
		Control: newControlResponse(result.Control),
		Risk:    newRiskResponse(result.Risk),
	})
}

func (s *Server) deleteControl(w http.ResponseWriter, r *http.Request) {
	controlID, err := pathInt64(r, "controlID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	risk, err := s.uc.Control.DeleteControl(r.Context(), orgOf(r), controlID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"risk": newRiskResponse(risk)})
}

func (s *Server) getControl(w http.ResponseWriter, r *http.Request) {
	controlID, err := pathInt64(r, "controlID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	control, err := s.uc.Control.GetControl(r.Context(), orgOf(r), controlID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newControlResponse(control))
}

func (s *Server) listControls(w http.ResponseWriter, r *http.Request) {
	riskID, err := pathInt64(r, "riskID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	controls, err := s.uc.Control.ListControls(r.Context(), orgOf(r), riskID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]controlResponse, len(controls))
	for i, c := range controls {
		resp[i] = newControlResponse(c)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"controls": resp})
}
