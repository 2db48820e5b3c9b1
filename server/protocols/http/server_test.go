package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gear6io/icecat/server/catalog/sqlite"
	"github.com/gear6io/icecat/server/config"
	"github.com/gear6io/icecat/server/metadata"
	"github.com/gear6io/icecat/server/storage"
	"github.com/gear6io/icecat/server/tables"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	warehouse := t.TempDir()
	cfg := config.LoadDefaultConfig()
	cfg.Storage.WarehousePath = warehouse

	dsn := "file:" + filepath.Join(t.TempDir(), "catalog.db") + "?_foreign_keys=on"
	store, err := sqlite.NewStore(dsn, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	accessor := storage.NewAccessor(warehouse, zerolog.Nop())
	meta := metadata.NewManager(zerolog.Nop())
	tableManager := tables.NewManager(store, accessor, meta, zerolog.Nop())

	return NewServer(cfg, store, tableManager, zerolog.Nop())
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (*nethttp.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req, int(10*time.Second/time.Millisecond))
	require.NoError(t, err)

	var parsed map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &parsed), string(data))
	}
	return resp, parsed
}

func createNamespace(t *testing.T, s *Server, levels ...string) {
	t.Helper()
	resp, _ := doJSON(t, s, "POST", "/v1/namespaces", map[string]any{"namespace": levels})
	require.Equal(t, 200, resp.StatusCode)
}

func TestConfigEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, body := doJSON(t, s, "GET", "/v1/config", nil)
	require.Equal(t, 200, resp.StatusCode)

	defaults, ok := body["defaults"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, defaults["warehouse"])
	assert.Contains(t, body, "overrides")
}

func TestHealthAndRoot(t *testing.T) {
	s := newTestServer(t)

	resp, body := doJSON(t, s, "GET", "/health", nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	resp, body = doJSON(t, s, "GET", "/", nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "icecat", body["name"])
}

func TestNamespaceEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp, body := doJSON(t, s, "POST", "/v1/namespaces", map[string]any{
		"namespace":  []string{"db"},
		"properties": map[string]string{"owner": "me"},
	})
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []any{"db"}, body["namespace"])

	// Duplicate namespace
	resp, body = doJSON(t, s, "POST", "/v1/namespaces", map[string]any{"namespace": []string{"db"}})
	require.Equal(t, 409, resp.StatusCode)
	wireErr := body["error"].(map[string]any)
	assert.Equal(t, "NamespaceAlreadyExistsException", wireErr["type"])
	assert.Equal(t, float64(409), wireErr["code"])

	// Load
	resp, body = doJSON(t, s, "GET", "/v1/namespaces/db", nil)
	require.Equal(t, 200, resp.StatusCode)
	props := body["properties"].(map[string]any)
	assert.Equal(t, "me", props["owner"])

	// HEAD exists / missing
	resp, _ = doJSON(t, s, "HEAD", "/v1/namespaces/db", nil)
	assert.Equal(t, 200, resp.StatusCode)
	resp, _ = doJSON(t, s, "HEAD", "/v1/namespaces/ghost", nil)
	assert.Equal(t, 404, resp.StatusCode)

	// Nested listing with parent filter
	createNamespace(t, s, "db", "inner")
	resp, body = doJSON(t, s, "GET", "/v1/namespaces?parent=db", nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []any{[]any{"db", "inner"}}, body["namespaces"])

	// Properties update
	resp, body = doJSON(t, s, "POST", "/v1/namespaces/db/properties", map[string]any{
		"updates":  map[string]string{"added": "1"},
		"removals": []string{"owner", "ghost-key"},
	})
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []any{"added"}, body["updated"])
	assert.Equal(t, []any{"owner"}, body["removed"])
	assert.Equal(t, []any{"ghost-key"}, body["missing"])

	// Drop
	resp, _ = doJSON(t, s, "DELETE", "/v1/namespaces/db.inner", nil)
	assert.Equal(t, 204, resp.StatusCode)
	resp, _ = doJSON(t, s, "DELETE", "/v1/namespaces/db", nil)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestCreateLoadDropTable(t *testing.T) {
	s := newTestServer(t)
	createNamespace(t, s, "db")

	resp, body := doJSON(t, s, "POST", "/v1/namespaces/db/tables", map[string]any{
		"name": "t",
		"schema": map[string]any{
			"type": "struct",
			"fields": []map[string]any{
				{"id": 1, "name": "x", "type": "int", "required": false},
			},
		},
	})
	require.Equal(t, 200, resp.StatusCode, fmt.Sprint(body))

	md := body["metadata"].(map[string]any)
	assert.NotEmpty(t, md["table-uuid"])
	assert.Equal(t, filepath.Join(s.config.GetWarehousePath(), "db", "t"), md["location"])
	location := body["metadata-location"].(string)
	assert.Contains(t, filepath.Base(location), "00000-")
	assert.Contains(t, location, ".metadata.json")

	// Load matches
	resp, body = doJSON(t, s, "GET", "/v1/namespaces/db/tables/t", nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, location, body["metadata-location"])

	// HEAD
	resp, _ = doJSON(t, s, "HEAD", "/v1/namespaces/db/tables/t", nil)
	assert.Equal(t, 200, resp.StatusCode)
	resp, _ = doJSON(t, s, "HEAD", "/v1/namespaces/db/tables/ghost", nil)
	assert.Equal(t, 404, resp.StatusCode)

	// List
	resp, body = doJSON(t, s, "GET", "/v1/namespaces/db/tables", nil)
	require.Equal(t, 200, resp.StatusCode)
	idents := body["identifiers"].([]any)
	require.Len(t, idents, 1)

	// Drop, then a load is a 404 NoSuchTable
	resp, _ = doJSON(t, s, "DELETE", "/v1/namespaces/db/tables/t", nil)
	assert.Equal(t, 204, resp.StatusCode)

	resp, body = doJSON(t, s, "GET", "/v1/namespaces/db/tables/t", nil)
	require.Equal(t, 404, resp.StatusCode)
	wireErr := body["error"].(map[string]any)
	assert.Equal(t, "NoSuchTableException", wireErr["type"])
}

func TestCommitAndSnapshotRef(t *testing.T) {
	s := newTestServer(t)
	createNamespace(t, s, "db")

	resp, _ := doJSON(t, s, "POST", "/v1/namespaces/db/tables", map[string]any{
		"name": "t",
		"schema": map[string]any{
			"type":   "struct",
			"fields": []map[string]any{{"id": 1, "name": "x", "type": "int"}},
		},
	})
	require.Equal(t, 200, resp.StatusCode)

	resp, body := doJSON(t, s, "POST", "/v1/namespaces/db/tables/t", map[string]any{
		"updates": []map[string]any{{
			"action": "add-snapshot",
			"snapshot": map[string]any{
				"snapshot-id":  42,
				"timestamp-ms": 1700000001000,
			},
		}},
	})
	require.Equal(t, 200, resp.StatusCode, fmt.Sprint(body))
	location := body["metadata-location"].(string)
	assert.Contains(t, filepath.Base(location), "00001-")

	// By ref name and literal id
	for _, ref := range []string{"main", "42"} {
		resp, body = doJSON(t, s, "GET", "/v1/namespaces/db/tables/t?snapshot-ref="+ref, nil)
		require.Equal(t, 200, resp.StatusCode)
		md := body["metadata"].(map[string]any)
		assert.Equal(t, float64(42), md["current-snapshot-id"])
	}

	// Unknown ref
	resp, body = doJSON(t, s, "GET", "/v1/namespaces/db/tables/t?snapshot-ref=nope", nil)
	require.Equal(t, 404, resp.StatusCode)
	wireErr := body["error"].(map[string]any)
	assert.Equal(t, "NoSuchTableException", wireErr["type"])
}

func TestCommitRequirementFailureWire(t *testing.T) {
	s := newTestServer(t)
	createNamespace(t, s, "db")

	resp, _ := doJSON(t, s, "POST", "/v1/namespaces/db/tables", map[string]any{
		"name": "t",
		"schema": map[string]any{
			"type":   "struct",
			"fields": []map[string]any{{"id": 1, "name": "x", "type": "int"}},
		},
	})
	require.Equal(t, 200, resp.StatusCode)

	resp, body := doJSON(t, s, "POST", "/v1/namespaces/db/tables/t", map[string]any{
		"requirements": []map[string]any{{"type": "assert-table-uuid", "uuid": "wrong-uuid"}},
		"updates":      []map[string]any{},
	})
	require.Equal(t, 409, resp.StatusCode)
	wireErr := body["error"].(map[string]any)
	assert.Equal(t, "CommitFailedException", wireErr["type"])
	assert.Equal(t, float64(409), wireErr["code"])
}

func TestRegisterTableEndpoint(t *testing.T) {
	s := newTestServer(t)
	createNamespace(t, s, "db")

	resp, created := doJSON(t, s, "POST", "/v1/namespaces/db/tables", map[string]any{
		"name": "src",
		"schema": map[string]any{
			"type":   "struct",
			"fields": []map[string]any{{"id": 1, "name": "x", "type": "int"}},
		},
	})
	require.Equal(t, 200, resp.StatusCode)
	location := created["metadata-location"].(string)

	resp, _ = doJSON(t, s, "DELETE", "/v1/namespaces/db/tables/src", nil)
	require.Equal(t, 204, resp.StatusCode)

	resp, body := doJSON(t, s, "POST", "/v1/namespaces/db/tables/register", map[string]any{
		"metadata-location": location,
	})
	require.Equal(t, 200, resp.StatusCode, fmt.Sprint(body))
	assert.Equal(t, location, body["metadata-location"])

	resp, _ = doJSON(t, s, "HEAD", "/v1/namespaces/db/tables/src", nil)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRenameCollision(t *testing.T) {
	s := newTestServer(t)
	createNamespace(t, s, "a")
	createNamespace(t, s, "b")

	for _, ns := range []string{"a", "b"} {
		resp, _ := doJSON(t, s, "POST", "/v1/namespaces/"+ns+"/tables", map[string]any{
			"name": "t",
			"schema": map[string]any{
				"type":   "struct",
				"fields": []map[string]any{{"id": 1, "name": "x", "type": "int"}},
			},
		})
		require.Equal(t, 200, resp.StatusCode)
	}

	resp, body := doJSON(t, s, "POST", "/v1/tables/rename", map[string]any{
		"source":      map[string]any{"namespace": []string{"a"}, "name": "t"},
		"destination": map[string]any{"namespace": []string{"b"}, "name": "t"},
	})
	require.Equal(t, 409, resp.StatusCode)
	wireErr := body["error"].(map[string]any)
	assert.Equal(t, "TableAlreadyExistsException", wireErr["type"])

	// Non-colliding rename succeeds with no body
	resp, _ = doJSON(t, s, "POST", "/v1/tables/rename", map[string]any{
		"source":      map[string]any{"namespace": []string{"a"}, "name": "t"},
		"destination": map[string]any{"namespace": []string{"b"}, "name": "t2"},
	})
	assert.Equal(t, 204, resp.StatusCode)
}

func TestDropNonEmptyNamespace(t *testing.T) {
	s := newTestServer(t)
	createNamespace(t, s, "db")

	resp, _ := doJSON(t, s, "POST", "/v1/namespaces/db/tables", map[string]any{
		"name": "t",
		"schema": map[string]any{
			"type":   "struct",
			"fields": []map[string]any{{"id": 1, "name": "x", "type": "int"}},
		},
	})
	require.Equal(t, 200, resp.StatusCode)

	resp, body := doJSON(t, s, "DELETE", "/v1/namespaces/db", nil)
	require.Equal(t, 400, resp.StatusCode)
	wireErr := body["error"].(map[string]any)
	assert.Equal(t, "ValidationException", wireErr["type"])

	resp, _ = doJSON(t, s, "DELETE", "/v1/namespaces/db/tables/t", nil)
	require.Equal(t, 204, resp.StatusCode)
	resp, _ = doJSON(t, s, "DELETE", "/v1/namespaces/db", nil)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestMalformedBodyIsValidation(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/namespaces", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, 400, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	wireErr := parsed["error"].(map[string]any)
	assert.Equal(t, "ValidationException", wireErr["type"])
}

func TestUnknownRouteErrorShape(t *testing.T) {
	s := newTestServer(t)

	resp, body := doJSON(t, s, "GET", "/v1/unknown", nil)
	require.Equal(t, 404, resp.StatusCode)
	wireErr := body["error"].(map[string]any)
	assert.Equal(t, "NotFoundException", wireErr["type"])
	assert.Equal(t, float64(404), wireErr["code"])
}
