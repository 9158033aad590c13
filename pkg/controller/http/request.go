package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

const maxBodySize = 1 << 20

// decodeWrite decodes a write request body into v. Bodies naming a derived
// field are rejected before decoding; unknown fields are a validation error.
func decodeWrite(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return goerr.Wrap(usecase.ErrValidation, "failed to read request body", goerr.V("reason", err.Error()))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return goerr.Wrap(usecase.ErrValidation, "request body must be a JSON object", goerr.V("reason", err.Error()))
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	if err := usecase.CheckWritableFields(keys); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return goerr.Wrap(usecase.ErrValidation, "invalid request body", goerr.V("reason", err.Error()))
	}
	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, goerr.Wrap(usecase.ErrValidation, "invalid path parameter", goerr.V(name, raw))
	}
	return id, nil
}

func pathPeriodID(r *http.Request) model.PeriodID {
	return model.PeriodID(chi.URLParam(r, "periodID"))
}

func parsePeriod(raw string) (*model.Period, error) {
	if raw == "" {
		return nil, nil
	}
	p, err := model.ParsePeriod(model.PeriodID(raw))
	if err != nil {
		return nil, goerr.Wrap(usecase.ErrValidation, "invalid period", goerr.V("period", raw), goerr.V("reason", err.Error()))
	}
	return &p, nil
}
