package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/riskledger/pkg/controller/http"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/repository/memory"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

type testClient struct {
	t      *testing.T
	server *httpctrl.Server
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	registry := model.NewOrganizationRegistry()
	registry.Register(&model.OrganizationEntry{
		Organization: model.Organization{ID: "acme", Name: "Acme", Cadence: types.CadenceQuarterly},
	})
	registry.Register(&model.OrganizationEntry{
		Organization: model.Organization{ID: "globex", Name: "Globex", Cadence: types.CadenceQuarterly},
	})

	uc := usecase.New(memory.New(),
		usecase.WithOrganizationRegistry(registry),
		usecase.WithClock(func() time.Time { return time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC) }),
	)
	server := httpctrl.New(uc,
		httpctrl.WithAuth(usecase.NewNoAuthnUseCase("dev", types.RoleViewer)),
	)
	return &testClient{t: t, server: server}
}

// do sends a request as an actor of role; an empty role sends no actor headers
func (c *testClient) do(method, path string, role types.Role, body string) (int, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if role != "" {
		req.Header.Set("X-Actor-ID", "u-"+strings.ToLower(role.String()))
		req.Header.Set("X-Actor-Role", role.String())
	}

	rec := httptest.NewRecorder()
	c.server.ServeHTTP(rec, req)

	var resp map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		gt.NoError(c.t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&resp)).Required()
	}
	return rec.Code, resp
}

func (c *testClient) createRisk() map[string]any {
	c.t.Helper()
	status, resp := c.do(http.MethodPost, "/api/orgs/acme/risks", types.RoleEditor,
		`{"title":"Payment outage","inherent_likelihood":4,"inherent_impact":5}`)
	gt.Value(c.t, status).Equal(http.StatusCreated)
	return resp
}

func TestServer_Healthz(t *testing.T) {
	c := newTestClient(t)
	status, resp := c.do(http.MethodGet, "/healthz", "", "")
	gt.Value(t, status).Equal(http.StatusOK)
	gt.Value(t, resp["status"]).Equal("ok")
}

func TestServer_Metrics(t *testing.T) {
	c := newTestClient(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.server.ServeHTTP(rec, req)
	gt.Value(t, rec.Code).Equal(http.StatusOK)
}

func TestServer_Risks(t *testing.T) {
	t.Run("create returns code and derived state", func(t *testing.T) {
		c := newTestClient(t)
		resp := c.createRisk()

		gt.Value(t, resp["code"]).Equal("RISK-0001")
		derived := resp["derived"].(map[string]any)
		gt.Value(t, derived["residual_score"]).Equal(float64(20))
	})

	t.Run("derived fields in create body are rejected", func(t *testing.T) {
		c := newTestClient(t)
		status, _ := c.do(http.MethodPost, "/api/orgs/acme/risks", types.RoleEditor,
			`{"title":"x","inherent_likelihood":4,"inherent_impact":5,"residual_score":1}`)
		gt.Value(t, status).Equal(http.StatusUnprocessableEntity)

		status, resp := c.do(http.MethodGet, "/api/orgs/acme/risks", types.RoleViewer, "")
		gt.Value(t, status).Equal(http.StatusOK)
		gt.Array(t, resp["risks"].([]any)).Length(0)
	})

	t.Run("derived fields in patch body are rejected", func(t *testing.T) {
		c := newTestClient(t)
		c.createRisk()

		status, _ := c.do(http.MethodPatch, "/api/orgs/acme/risks/1", types.RoleEditor, `{"residual_likelihood":1}`)
		gt.Value(t, status).Equal(http.StatusUnprocessableEntity)

		_, resp := c.do(http.MethodGet, "/api/orgs/acme/risks/1/derived", types.RoleViewer, "")
		gt.Value(t, resp["residual_likelihood"]).Equal(float64(4))
	})

	t.Run("patch recomputes", func(t *testing.T) {
		c := newTestClient(t)
		c.createRisk()

		status, resp := c.do(http.MethodPatch, "/api/orgs/acme/risks/1", types.RoleEditor, `{"inherent_impact":2}`)
		gt.Value(t, status).Equal(http.StatusOK)
		derived := resp["derived"].(map[string]any)
		gt.Value(t, derived["residual_score"]).Equal(float64(8))
	})

	t.Run("unknown field is a bad request", func(t *testing.T) {
		c := newTestClient(t)
		status, _ := c.do(http.MethodPost, "/api/orgs/acme/risks", types.RoleEditor,
			`{"title":"x","inherent_likelihood":4,"inherent_impact":5,"severity":"high"}`)
		gt.Value(t, status).Equal(http.StatusBadRequest)
	})

	t.Run("viewer cannot create", func(t *testing.T) {
		c := newTestClient(t)
		status, _ := c.do(http.MethodPost, "/api/orgs/acme/risks", types.RoleViewer,
			`{"title":"x","inherent_likelihood":4,"inherent_impact":5}`)
		gt.Value(t, status).Equal(http.StatusForbidden)
	})

	t.Run("unknown risk", func(t *testing.T) {
		c := newTestClient(t)
		status, _ := c.do(http.MethodGet, "/api/orgs/acme/risks/42", types.RoleViewer, "")
		gt.Value(t, status).Equal(http.StatusNotFound)

		status, _ = c.do(http.MethodGet, "/api/orgs/acme/risks/abc", types.RoleViewer, "")
		gt.Value(t, status).Equal(http.StatusBadRequest)
	})

	t.Run("unregistered organization", func(t *testing.T) {
		c := newTestClient(t)
		status, _ := c.do(http.MethodGet, "/api/orgs/initech/risks", types.RoleViewer, "")
		gt.Value(t, status).Equal(http.StatusNotFound)
	})
}

func TestServer_Controls(t *testing.T) {
	c := newTestClient(t)
	c.createRisk()

	status, resp := c.do(http.MethodPost, "/api/orgs/acme/risks/1/controls", types.RoleEditor,
		`{"name":"MFA","type":"LIKELIHOOD_REDUCING","design":3,"implementation":3,"monitoring":0,"evaluation":0}`)
	gt.Value(t, status).Equal(http.StatusCreated)
	control := resp["control"].(map[string]any)
	gt.Value(t, control["code"]).Equal("CTL-0001")
	gt.Value(t, control["effectiveness"]).Equal(float64(50))
	risk := resp["risk"].(map[string]any)
	gt.Value(t, risk["derived"].(map[string]any)["residual_score"]).Equal(float64(10))

	status, resp = c.do(http.MethodPut, "/api/orgs/acme/controls/1", types.RoleEditor, `{"monitoring":3,"evaluation":3}`)
	gt.Value(t, status).Equal(http.StatusOK)
	risk = resp["risk"].(map[string]any)
	gt.Value(t, risk["derived"].(map[string]any)["residual_score"]).Equal(float64(5))

	status, _ = c.do(http.MethodPut, "/api/orgs/acme/controls/1", types.RoleEditor, `{"design":9}`)
	gt.Value(t, status).Equal(http.StatusBadRequest)

	status, resp = c.do(http.MethodGet, "/api/orgs/acme/risks/1/controls", types.RoleViewer, "")
	gt.Value(t, status).Equal(http.StatusOK)
	gt.Array(t, resp["controls"].([]any)).Length(1)

	status, resp = c.do(http.MethodDelete, "/api/orgs/acme/controls/1", types.RoleEditor, "")
	gt.Value(t, status).Equal(http.StatusOK)
	risk = resp["risk"].(map[string]any)
	gt.Value(t, risk["derived"].(map[string]any)["residual_score"]).Equal(float64(20))

	status, _ = c.do(http.MethodDelete, "/api/orgs/acme/controls/1", types.RoleEditor, "")
	gt.Value(t, status).Equal(http.StatusNotFound)
}

func TestServer_Period(t *testing.T) {
	c := newTestClient(t)
	c.createRisk()

	status, resp := c.do(http.MethodGet, "/api/orgs/acme/period", types.RoleViewer, "")
	gt.Value(t, status).Equal(http.StatusOK)
	gt.Value(t, resp["period"]).Equal("2026-Q3")

	status, _ = c.do(http.MethodPost, "/api/orgs/acme/period", types.RoleAdmin, `{"period":"2026-Q1"}`)
	gt.Value(t, status).Equal(http.StatusUnprocessableEntity)

	status, _ = c.do(http.MethodPost, "/api/orgs/acme/period/commit", types.RoleEditor, `{}`)
	gt.Value(t, status).Equal(http.StatusForbidden)

	status, resp = c.do(http.MethodPost, "/api/orgs/acme/period/commit", types.RoleAdmin, `{"note":"Q3","period":"2026-Q3"}`)
	gt.Value(t, status).Equal(http.StatusCreated)
	gt.Value(t, resp["active_period"]).Equal("2026-Q4")
	commit := resp["commit"].(map[string]any)
	gt.Value(t, commit["row_count"]).Equal(float64(1))
	gt.Value(t, commit["committed_by"]).Equal("u-admin")

	// retried request
	status, _ = c.do(http.MethodPost, "/api/orgs/acme/period/commit", types.RoleAdmin, `{"note":"Q3","period":"2026-Q3"}`)
	gt.Value(t, status).Equal(http.StatusConflict)

	status, resp = c.do(http.MethodGet, "/api/orgs/acme/commits", types.RoleViewer, "")
	gt.Value(t, status).Equal(http.StatusOK)
	gt.Array(t, resp["commits"].([]any)).Length(1)

	status, resp = c.do(http.MethodGet, "/api/orgs/acme/risks/1/history/2026-Q3", types.RoleViewer, "")
	gt.Value(t, status).Equal(http.StatusOK)
	gt.Value(t, resp["residual_score"]).Equal(float64(20))

	status, _ = c.do(http.MethodGet, "/api/orgs/acme/risks/1/history/2026-Q4", types.RoleViewer, "")
	gt.Value(t, status).Equal(http.StatusNotFound)

	status, resp = c.do(http.MethodGet, "/api/orgs/acme/periods/2026-Q3/history", types.RoleViewer, "")
	gt.Value(t, status).Equal(http.StatusOK)
	gt.Array(t, resp["entries"].([]any)).Length(1)

	status, resp = c.do(http.MethodGet, "/api/orgs/acme/risks/1/history", types.RoleViewer, "")
	gt.Value(t, status).Equal(http.StatusOK)
	gt.Array(t, resp["history"].([]any)).Length(1)
}

func TestServer_Sequence(t *testing.T) {
	c := newTestClient(t)

	status, resp := c.do(http.MethodPost, "/api/orgs/acme/sequences/AUDIT/next", types.RoleEditor, "")
	gt.Value(t, status).Equal(http.StatusOK)
	gt.Value(t, resp["code"]).Equal("AUDIT-0001")
	gt.Value(t, resp["sequential"]).Equal(true)

	status, _ = c.do(http.MethodPost, "/api/orgs/acme/sequences/bad_name/next", types.RoleEditor, "")
	gt.Value(t, status).Equal(http.StatusBadRequest)
}

func TestServer_Actor(t *testing.T) {
	c := newTestClient(t)

	t.Run("default actor applies without headers", func(t *testing.T) {
		status, _ := c.do(http.MethodGet, "/api/orgs/acme/risks", "", "")
		gt.Value(t, status).Equal(http.StatusOK)
	})

	t.Run("invalid role header", func(t *testing.T) {
		status, _ := c.do(http.MethodGet, "/api/orgs/acme/risks", "ROOT", "")
		gt.Value(t, status).Equal(http.StatusUnauthorized)
	})

	t.Run("no authenticator configured", func(t *testing.T) {
		server := httpctrl.New(usecase.New(memory.New()))
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orgs/acme/risks", nil))
		gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
	})
}
