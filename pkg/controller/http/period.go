package http

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

type initializePeriodRequest struct {
	Period string `json:"period"`
}

type commitPeriodRequest struct {
	Note   string `json:"note"`
	Period string `json:"period"`
}

func newActivePeriodResponse(active *model.ActivePeriod) activePeriodResponse {
	return activePeriodResponse{
		Period:    active.Period.ID().String(),
		Cadence:   active.Period.Cadence.String(),
		UpdatedAt: active.UpdatedAt,
	}
}

func (s *Server) getActivePeriod(w http.ResponseWriter, r *http.Request) {
	active, err := s.uc.Period.GetActivePeriod(r.Context(), orgOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newActivePeriodResponse(active))
}

func (s *Server) initializePeriod(w http.ResponseWriter, r *http.Request) {
	var req initializePeriodRequest
	if err := decodeWrite(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if period == nil {
		writeError(w, r, goerr.Wrap(usecase.ErrValidation, "period is required"))
		return
	}

	active, err := s.uc.Period.InitializePeriod(r.Context(), orgOf(r), *period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newActivePeriodResponse(active))
}

func (s *Server) commitPeriod(w http.ResponseWriter, r *http.Request) {
	var req commitPeriodRequest
	if err := decodeWrite(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.uc.Period.CommitPeriod(r.Context(), orgOf(r), usecase.CommitPeriodInput{
		Note:   req.Note,
		Period: period,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, commitResultResponse{
		Commit:       newCommitResponse(result.Commit),
		ActivePeriod: result.Active.ID().String(),
	})
}

func (s *Server) listCommits(w http.ResponseWriter, r *http.Request) {
	commits, err := s.uc.Period.ListCommits(r.Context(), orgOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]commitResponse, len(commits))
	for i, c := range commits {
		resp[i] = newCommitResponse(c)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"commits": resp})
}

func (s *Server) getCommit(w http.ResponseWriter, r *http.Request) {
	commit, err := s.uc.Period.GetCommit(r.Context(), orgOf(r), pathPeriodID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newCommitResponse(commit))
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	riskID, err := pathInt64(r, "riskID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	history, err := s.uc.Period.GetHistory(r.Context(), orgOf(r), riskID, pathPeriodID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newHistoryResponse(history))
}

func (s *Server) listRiskHistory(w http.ResponseWriter, r *http.Request) {
	riskID, err := pathInt64(r, "riskID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	histories, err := s.uc.Period.ListRiskHistory(r.Context(), orgOf(r), riskID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"history": newHistoryResponses(histories)})
}

func (s *Server) listPeriodHistory(w http.ResponseWriter, r *http.Request) {
	commit, histories, err := s.uc.Period.ListPeriodHistory(r.Context(), orgOf(r), pathPeriodID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, periodHistoryResponse{
		Commit:  newCommitResponse(commit),
		Entries: newHistoryResponses(histories),
	})
}
