package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildflow/permkit/handler"
	"github.com/buildflow/permkit/pkg/permission"
)

func newTestServer(t *testing.T, opts ...handler.Option) *httptest.Server {
	t.Helper()

	store := permission.NewStore()
	require.NoError(t, store.Load(1,
		[]permission.Role{
			{
				ID:   "viewer",
				Name: "Viewer",
				Permissions: []permission.Rule{
					{ID: "r1", Resource: "documents", Action: "read", Granted: true},
				},
			},
			{
				ID:       "editor",
				Name:     "Editor",
				Inherits: []string{"viewer"},
				Permissions: []permission.Rule{
					{ID: "r2", Resource: "documents", Action: "edit", Granted: true},
					{ID: "r3", Resource: "reports", Action: "read", Granted: true},
				},
			},
		},
		[]permission.User{
			{
				ID:          "u1",
				PrimaryRole: "editor",
				Active:      true,
				Restrictions: []permission.Restriction{
					{ID: "x1", Resource: "documents", Action: "edit", Reason: "probation"},
				},
			},
			{ID: "u2", PrimaryRole: "viewer", Active: false},
		},
	))

	srv := httptest.NewServer(handler.New(permission.New(store), opts...).Router())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode, decodeEnvelope(t, resp)
}

func postJSON(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode, decodeEnvelope(t, resp)
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope
}

func TestEvaluate(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	t.Run("allows via inherited role rule", func(t *testing.T) {
		status, body := postJSON(t, srv.URL+"/evaluate", `{"user_id":"u1","resource":"documents","action":"read"}`)
		require.Equal(t, http.StatusOK, status)

		data := body["data"].(map[string]any)
		assert.Equal(t, "allow", data["decision"])
		assert.Equal(t, "role_rule", data["source"])
		assert.Equal(t, "viewer", data["role_id"])
	})

	t.Run("denies via restriction", func(t *testing.T) {
		status, body := postJSON(t, srv.URL+"/evaluate", `{"user_id":"u1","resource":"documents","action":"edit"}`)
		require.Equal(t, http.StatusOK, status)

		data := body["data"].(map[string]any)
		assert.Equal(t, "deny", data["decision"])
		assert.Equal(t, "restriction", data["source"])
	})

	t.Run("unknown user denies with flag", func(t *testing.T) {
		status, body := postJSON(t, srv.URL+"/evaluate", `{"user_id":"ghost","resource":"documents","action":"read"}`)
		require.Equal(t, http.StatusOK, status)

		data := body["data"].(map[string]any)
		assert.Equal(t, "deny", data["decision"])
		assert.Equal(t, "default", data["source"])
		assert.Equal(t, true, data["unknown_subject"])
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		status, body := postJSON(t, srv.URL+"/evaluate", `{"user_id":"u1"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.NotNil(t, body["error"])
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		status, _ := postJSON(t, srv.URL+"/evaluate", `{"user_id":`)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestRoleEndpoints(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	t.Run("lists roles base first", func(t *testing.T) {
		status, body := getJSON(t, srv.URL+"/roles")
		require.Equal(t, http.StatusOK, status)

		data := body["data"].(map[string]any)
		roles := data["roles"].([]any)
		assert.Equal(t, []any{"viewer", "editor"}, roles)
		assert.Equal(t, float64(1), data["snapshot_version"])
	})

	t.Run("role permissions include inherited rules", func(t *testing.T) {
		status, body := getJSON(t, srv.URL+"/roles/editor/permissions")
		require.Equal(t, http.StatusOK, status)

		data := body["data"].(map[string]any)
		assert.Equal(t, "editor", data["role_id"])
		rules := data["rules"].([]any)
		require.Len(t, rules, 3)

		first := rules[0].(map[string]any)
		assert.Equal(t, "documents", first["resource"])
		assert.Equal(t, "edit", first["action"])
		assert.Equal(t, "editor", first["role_id"])
	})

	t.Run("unknown role is 404", func(t *testing.T) {
		status, body := getJSON(t, srv.URL+"/roles/ghost/permissions")
		assert.Equal(t, http.StatusNotFound, status)
		errDetail := body["error"].(map[string]any)
		assert.Equal(t, "not_found", errDetail["code"])
	})

	t.Run("preview resolves a candidate role", func(t *testing.T) {
		status, body := postJSON(t, srv.URL+"/roles/preview", `{
			"id": "auditor",
			"name": "Auditor",
			"inherits": ["viewer"],
			"permissions": [{"id":"p1","resource":"reports","action":"read","granted":true}]
		}`)
		require.Equal(t, http.StatusOK, status)

		data := body["data"].(map[string]any)
		assert.Equal(t, "auditor", data["role_id"])
		assert.Len(t, data["rules"].([]any), 2)
	})

	t.Run("preview rejects a cycle", func(t *testing.T) {
		status, body := postJSON(t, srv.URL+"/roles/preview", `{"id":"viewer","name":"Viewer","inherits":["editor"]}`)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		errDetail := body["error"].(map[string]any)
		assert.Equal(t, "invalid_role_graph", errDetail["code"])
	})
}

func TestUserPermissions(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	t.Run("full matrix", func(t *testing.T) {
		status, body := getJSON(t, srv.URL+"/users/u1/permissions")
		require.Equal(t, http.StatusOK, status)

		data := body["data"].(map[string]any)
		assert.Equal(t, "u1", data["user_id"])
		grants := data["grants"].([]any)
		require.Len(t, grants, 3)

		edit := grants[0].(map[string]any)
		assert.Equal(t, "edit", edit["action"])
		assert.Equal(t, false, edit["granted"])
		assert.Equal(t, "restriction", edit["source"])
	})

	t.Run("wildcard resource filter", func(t *testing.T) {
		status, body := getJSON(t, srv.URL+"/users/u1/permissions?resource=reports")
		require.Equal(t, http.StatusOK, status)

		data := body["data"].(map[string]any)
		grants := data["grants"].([]any)
		require.Len(t, grants, 1)
		assert.Equal(t, "reports", grants[0].(map[string]any)["resource"])
	})

	t.Run("inactive user has empty grants", func(t *testing.T) {
		status, body := getJSON(t, srv.URL+"/users/u2/permissions")
		require.Equal(t, http.StatusOK, status)

		data := body["data"].(map[string]any)
		assert.Equal(t, true, data["inactive"])
		assert.Empty(t, data["grants"])
	})

	t.Run("unknown user is 404", func(t *testing.T) {
		status, _ := getJSON(t, srv.URL+"/users/ghost/permissions")
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	t.Run("all checks pass", func(t *testing.T) {
		srv := newTestServer(t, handler.WithHealthcheck("store", func(context.Context) error { return nil }))
		status, body := getJSON(t, srv.URL+"/healthz")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ok", body["data"].(map[string]any)["store"])
	})

	t.Run("failing check degrades status", func(t *testing.T) {
		srv := newTestServer(t,
			handler.WithHealthcheck("store", func(context.Context) error { return nil }),
			handler.WithHealthcheck("redis", func(context.Context) error { return errors.New("connection refused") }),
		)
		status, body := getJSON(t, srv.URL+"/healthz")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		data := body["data"].(map[string]any)
		assert.Equal(t, "ok", data["store"])
		assert.Contains(t, data["redis"], "connection refused")
	})
}

func TestNewPanicsOnNilEngine(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { handler.New(nil) })
}
