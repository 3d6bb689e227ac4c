package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/codefinder/internal/observability"
	"github.com/efebarandurmaz/codefinder/internal/rag"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Query(ctx context.Context, query string) (*rag.Answer, error) {
	args := m.Called(ctx, query)
	a, _ := args.Get(0).(*rag.Answer)
	return a, args.Error(1)
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestRoot(t *testing.T) {
	q := &mockQuerier{}
	app := NewApp(q, Options{})

	code, body := do(t, app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"message":"GKE App V0"}`, body)
	q.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestQuery_OK(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, "what does main.py do?").
		Return(&rag.Answer{Text: "It parses\ncommand line\narguments."}, nil)
	m := observability.NewMetrics()
	app := NewApp(q, Options{Collection: "code", Metrics: m})

	code, body := do(t, app, http.MethodPost, "/query/", `{"query":"what does main.py do?"}`)
	require.Equal(t, http.StatusOK, code)

	var s string
	require.NoError(t, json.Unmarshal([]byte(body), &s), "body must be a JSON string")
	assert.Equal(t, "It parsescommand linearguments.", s)
	assert.NotContains(t, s, "\n")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueriesTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.InFlightQueries))
	q.AssertExpectations(t)
}

func TestQuery_NoAnswerSentinelIsReturned(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, "Enter query string.").
		Return(&rag.Answer{Text: "I don't know!", NoAnswer: true}, nil)
	app := NewApp(q, Options{})

	code, body := do(t, app, http.MethodPost, "/query/", `{"query":"Enter query string."}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `"I don't know!"`, body)
}

func TestQuery_NotFound(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, "anything").Return(nil, nil)
	m := observability.NewMetrics()
	app := NewApp(q, Options{Metrics: m})

	code, body := do(t, app, http.MethodPost, "/query/", `{"query":"anything"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.JSONEq(t, `{"detail":"No response found"}`, body)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueryNotFound))
}

func TestQuery_RequestErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{"malformed", `{"query":`, http.StatusBadRequest, `{"detail":"invalid JSON request"}`},
		{"missing query", `{}`, http.StatusUnprocessableEntity, `{"detail":{"query":"failed on 'required' tag"}}`},
		{"null query", `{"query":null}`, http.StatusUnprocessableEntity, `{"detail":{"query":"failed on 'required' tag"}}`},
		{"wrong type", `{"query":5}`, http.StatusBadRequest, `{"detail":"invalid JSON request"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &mockQuerier{}
			app := NewApp(q, Options{})
			code, body := do(t, app, http.MethodPost, "/query/", tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.JSONEq(t, tt.wantBody, body)
			q.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
		})
	}
}

func TestQuery_EmptyStringIsAccepted(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, "").Return(nil, nil)
	app := NewApp(q, Options{})

	code, _ := do(t, app, http.MethodPost, "/query/", `{"query":""}`)
	assert.Equal(t, http.StatusNotFound, code)
	q.AssertExpectations(t)
}

func TestQuery_InternalError(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, "q").Return(nil, errors.New("qdrant unavailable"))
	m := observability.NewMetrics()
	app := NewApp(q, Options{Metrics: m})

	code, body := do(t, app, http.MethodPost, "/query/", `{"query":"q"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.JSONEq(t, `{"detail":"Internal Server Error"}`, body)
	assert.NotContains(t, body, "qdrant")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueryErrorsTotal))
}

func TestQuery_WithoutTrailingSlash(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, "q").Return(&rag.Answer{Text: "ok"}, nil)
	app := NewApp(q, Options{})

	code, body := do(t, app, http.MethodPost, "/query", `{"query":"q"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `"ok"`, body)
}

func TestUnknownRoute(t *testing.T) {
	app := NewApp(&mockQuerier{}, Options{})
	code, body := do(t, app, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body, `"detail"`)
}
