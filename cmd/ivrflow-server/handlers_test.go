package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/ivrflow/internal/adapters/repository/memory"
	"github.com/flowgraph/ivrflow/internal/app/dto"
	"github.com/flowgraph/ivrflow/internal/app/services"
	"github.com/flowgraph/ivrflow/internal/app/usecases"
	"github.com/flowgraph/ivrflow/internal/core/catalog"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	flows := memory.NewFlowRepository(nil)
	c := usecases.StaticCatalog{
		Experiences: []catalog.Experience{
			{ID: 5, Name: "Billing", Categories: []catalog.Category{{ID: 9, Name: "Invoices"}, {ID: 10, Name: "Refunds"}}},
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := services.NewSessionManager(flows, c, services.WithDrafts(memory.NewDraftStore(nil), 0))
	return &testServer{t: t, handler: newServer(sessions, flows, logger).routes()}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) session() string {
	rec := s.do(http.MethodPost, "/sessions", map[string]interface{}{})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.SessionResponse](s.t, rec).ID
}

func (s *testServer) place(id string, module string, externalID int64) string {
	rec := s.do(http.MethodPost, "/sessions/"+id+"/nodes", map[string]interface{}{"module": module, "externalId": externalID})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return string(decode[dto.NodePayload](s.t, rec).ID)
}

func TestServer_EditAndFinalize(t *testing.T) {
	s := newTestServer(t)
	id := s.session()

	exp := s.place(id, "Experience", 5)
	cat := s.place(id, "Category", 9)
	assert.Equal(t, "node_1", exp)
	assert.Equal(t, "node_2", cat)

	rec := s.do(http.MethodPost, "/sessions/"+id+"/edges", map[string]string{"source": "node_0", "target": exp})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/sessions/"+id+"/edges", map[string]string{"source": exp, "target": cat})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPut, "/sessions/"+id+"/nodes/"+exp+"/config", map[string]interface{}{
		"data": map[string]interface{}{"name": "Billing", "dtmf_digit": "1", "prompt": 2},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	node := decode[dto.NodePayload](t, rec)
	assert.True(t, node.Submitted)
	assert.Equal(t, 1, node.DTMF)

	rec = s.do(http.MethodPut, "/sessions/"+id+"/nodes/"+cat+"/config", map[string]interface{}{
		"data": map[string]interface{}{
			"name": "Invoices", "dtmf_digit": 1, "prompt": 2,
			"audio": map[string]interface{}{"source": "playlist", "playlist": 1},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/sessions/"+id+"/finalize", map[string]string{"name": "Support line"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decode[dto.FinalizeResponse](t, rec)
	assert.NotEmpty(t, saved.FlowID)

	rec = s.do(http.MethodGet, "/flows", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]dto.FlowSummary](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Support line", list[0].Name)
	assert.Equal(t, 3, list[0].Nodes)

	rec = s.do(http.MethodGet, "/flows/"+saved.FlowID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Support line", decode[dto.FlowRecord](t, rec).Document.Name)

	rec = s.do(http.MethodPost, "/sessions", map[string]string{"flow_id": saved.FlowID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reopened := decode[dto.SessionResponse](t, rec)
	assert.Equal(t, saved.FlowID, reopened.FlowID)
	assert.Len(t, reopened.Snapshot.Edges, 2)

	rec = s.do(http.MethodDelete, "/flows/"+saved.FlowID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/flows/"+saved.FlowID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Violations(t *testing.T) {
	s := newTestServer(t)
	id := s.session()
	exp := s.place(id, "Experience", 5)
	inv := s.place(id, "Category", 9)
	ref := s.place(id, "Category", 10)

	tests := []struct {
		name     string
		method   string
		path     string
		body     interface{}
		wantKind string
		wantRule string
	}{
		{
			name:     "duplicate placement",
			method:   http.MethodPost,
			path:     "/sessions/" + id + "/nodes",
			body:     map[string]interface{}{"module": "Experience", "externalId": 5},
			wantKind: "duplicate",
			wantRule: "no-duplicate-placement",
		},
		{
			name:     "start to category",
			method:   http.MethodPost,
			path:     "/sessions/" + id + "/edges",
			body:     map[string]string{"source": "node_0", "target": inv},
			wantKind: "structural",
			wantRule: "structural-compatibility",
		},
		{
			name:     "empty flow",
			method:   http.MethodPost,
			path:     "/sessions/" + id + "/finalize",
			body:     map[string]string{"name": "Support line"},
			wantKind: "structural",
			wantRule: "full-connectivity",
		},
		{
			name:     "bad config data",
			method:   http.MethodPut,
			path:     "/sessions/" + id + "/nodes/" + exp + "/config",
			body:     map[string]interface{}{"data": map[string]interface{}{"name": "Billing", "dtmf_digit": 0}},
			wantKind: "config",
			wantRule: "config-shape",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			resp := decode[dto.ErrorResponse](t, rec)
			assert.Equal(t, "violation", resp.Code)
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.Equal(t, tt.wantRule, resp.Rule)
			assert.NotEmpty(t, resp.Message)
		})
	}

	t.Run("sibling digit", func(t *testing.T) {
		data := func(name string) map[string]interface{} {
			return map[string]interface{}{"data": map[string]interface{}{
				"name": name, "dtmf_digit": 3, "prompt": 2,
				"audio": map[string]interface{}{"source": "playlist", "playlist": 1},
			}}
		}
		rec := s.do(http.MethodPut, "/sessions/"+id+"/nodes/"+inv+"/config", data("Invoices"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = s.do(http.MethodPut, "/sessions/"+id+"/nodes/"+ref+"/config", data("Refunds"))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decode[dto.ErrorResponse](t, rec)
		assert.Equal(t, "uniqueness", resp.Kind)
		assert.Equal(t, ref, resp.NodeID)
	})
}

func TestServer_Errors(t *testing.T) {
	s := newTestServer(t)
	id := s.session()
	exp := s.place(id, "Experience", 5)
	rec := s.do(http.MethodPost, "/sessions/"+id+"/edges", map[string]string{"source": "node_0", "target": exp})
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown session", http.MethodGet, "/sessions/unknown", nil, http.StatusNotFound},
		{"unknown node", http.MethodDelete, "/sessions/" + id + "/nodes/node_42", nil, http.StatusNotFound},
		{"unknown catalog item", http.MethodPost, "/sessions/" + id + "/nodes", map[string]interface{}{"module": "Category", "externalId": 404}, http.StatusNotFound},
		{"remove start", http.MethodDelete, "/sessions/" + id + "/nodes/node_0", nil, http.StatusBadRequest},
		{"bad module", http.MethodPost, "/sessions/" + id + "/nodes", map[string]interface{}{"module": "Start", "externalId": 1}, http.StatusBadRequest},
		{"bad node id", http.MethodPost, "/sessions/" + id + "/edges", map[string]string{"source": "zero", "target": exp}, http.StatusBadRequest},
		{"flow name too long", http.MethodPost, "/sessions/" + id + "/finalize", map[string]string{"name": "This flow name is far longer than forty characters"}, http.StatusBadRequest},
		{"bad flow id", http.MethodPost, "/sessions", map[string]string{"flow_id": "nope"}, http.StatusBadRequest},
		{"missing body", http.MethodPost, "/sessions", nil, http.StatusBadRequest},
		{"unknown flow", http.MethodGet, "/flows/0d7c5b4e-6a43-4bd0-9a4c-2d1f3c35f7a1", nil, http.StatusNotFound},
		{"remove edge", http.MethodDelete, "/sessions/" + id + "/edges/" + url.PathEscape("node_0->"+exp), nil, http.StatusNoContent},
		{"remove edge again", http.MethodDelete, "/sessions/" + id + "/edges/" + url.PathEscape("node_0->"+exp), nil, http.StatusNotFound},
		{"close session", http.MethodDelete, "/sessions/" + id, nil, http.StatusNoContent},
		{"closed session", http.MethodGet, "/sessions/" + id, nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	s.session()

	rec := s.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ivrflow_sessions_active")
}
