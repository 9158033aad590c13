package errutil_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/utils/errutil"
)

func newCapturingContext(t *testing.T) (context.Context, *[]*sentry.Event) {
	t.Helper()
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			events = append(events, event)
			return nil
		},
	})
	gt.NoError(t, err).Required()

	hub := sentry.NewHub(client, sentry.NewScope())
	return sentry.SetHubOnContext(context.Background(), hub), &events
}

func TestHandle_ReportsGoerrValues(t *testing.T) {
	ctx, events := newCapturingContext(t)

	err := goerr.New("commit failed", goerr.V("org_id", "acme"), goerr.V("rows", 3))
	gt.Value(t, errutil.Handle(ctx, err, "period not committed")).Equal(err)

	gt.A(t, *events).Length(1)
	values := (*events)[0].Contexts["goerr"]
	gt.Value(t, values["org_id"]).Equal(any("acme"))
	gt.Value(t, values["rows"]).Equal(any(3))
}

func TestHandle_NilError(t *testing.T) {
	ctx, events := newCapturingContext(t)
	gt.NoError(t, errutil.Handle(ctx, nil, "nothing"))
	gt.A(t, *events).Length(0)
}

func TestHandleHTTP(t *testing.T) {
	t.Run("server error hides message and reports", func(t *testing.T) {
		ctx, events := newCapturingContext(t)
		w := httptest.NewRecorder()
		errutil.HandleHTTP(ctx, w, goerr.New("dsn=secret"), http.StatusInternalServerError)

		gt.Value(t, w.Code).Equal(http.StatusInternalServerError)
		var body map[string]string
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		gt.Value(t, body["error"]).NotEqual("dsn=secret")
		gt.A(t, *events).Length(1)
	})

	t.Run("client error is not reported", func(t *testing.T) {
		ctx, events := newCapturingContext(t)
		w := httptest.NewRecorder()
		errutil.HandleHTTP(ctx, w, goerr.New("bad likelihood"), http.StatusBadRequest)

		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
		var body map[string]string
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		gt.Value(t, body["error"]).Equal("bad likelihood")
		gt.A(t, *events).Length(0)
	})
}
