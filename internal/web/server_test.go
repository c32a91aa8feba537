package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftwork/weft/constraint"
	"github.com/weftwork/weft/loader"
	"github.com/weftwork/weft/model"
	"github.com/weftwork/weft/registry"
)

const devDoc = `{
  "metadata": {
    "package": "acme",
    "children": [
      {"object": {
        "name": "User",
        "subType": "pojo",
        "@dbTable": "users",
        "children": [
          {"field": {"name": "id", "subType": "long"}},
          {"field": {"name": "email", "subType": "string", "@required": true}}
        ]
      }}
    ]
  }
}`

func catalogRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry(nil)
	require.NoError(t, model.Install(reg, constraint.NewEngine(nil)))
	return reg
}

// testServer builds a server over a document the test can rewrite between
// reloads.
func testServer(t *testing.T, doc *string) (*Server, *Store) {
	t.Helper()
	reg := catalogRegistry(t)
	store, err := NewStore(func() (*loader.Loader, error) {
		ld, err := loader.New(reg, loader.Options{Name: "dev"})
		if err != nil {
			return nil, err
		}
		src := loader.ReaderSource("model.json", strings.NewReader(*doc), loader.FormatJSON)
		if err := ld.Init(src); err != nil {
			return nil, err
		}
		return ld, nil
	})
	require.NoError(t, err)
	require.NoError(t, store.Reload())

	srv, err := New(Config{}, reg, store, nil)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Hub().Close() })
	return srv, store
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_TreeEndpoint(t *testing.T) {
	doc := devDoc
	srv, _ := testServer(t, &doc)

	rec := get(t, srv.Handler(), "/api/tree")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), "acme::User")
	assert.Contains(t, rec.Body.String(), `"@dbTable": "users"`)
}

func TestServer_RequestIDEchoed(t *testing.T) {
	doc := devDoc
	srv, _ := testServer(t, &doc)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}

func TestServer_ObjectsEndpoint(t *testing.T) {
	doc := devDoc
	srv, _ := testServer(t, &doc)

	rec := get(t, srv.Handler(), "/api/objects")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Objects []objectSummary `json:"objects"`
	}
	require.NoError(t, gojson.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Objects, 1)
	assert.Equal(t, "acme::User", body.Objects[0].Name)
	assert.Equal(t, "acme", body.Objects[0].Package)
	assert.Equal(t, "pojo", body.Objects[0].SubType)
	assert.Equal(t, 2, body.Objects[0].Fields)
}

func TestServer_ObjectByName(t *testing.T) {
	doc := devDoc
	srv, _ := testServer(t, &doc)

	rec := get(t, srv.Handler(), "/api/objects/acme::User")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "email")

	rec = get(t, srv.Handler(), "/api/objects/acme::Nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "acme::Nope")
}

func TestServer_TypesEndpoint(t *testing.T) {
	doc := devDoc
	srv, _ := testServer(t, &doc)

	rec := get(t, srv.Handler(), "/api/types")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Types []typeEntry `json:"types"`
	}
	require.NoError(t, gojson.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Types)

	var pojo *typeEntry
	for i := range body.Types {
		if body.Types[i].Type == "object" && body.Types[i].SubType == "pojo" {
			pojo = &body.Types[i]
		}
	}
	require.NotNil(t, pojo)
	assert.Equal(t, "object.base", pojo.InheritsFrom)
}

func TestServer_StatsAndHealth(t *testing.T) {
	doc := devDoc
	srv, _ := testServer(t, &doc)

	rec := get(t, srv.Handler(), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		Registry registry.Stats `json:"registry"`
		Tree     map[string]any `json:"tree"`
	}
	require.NoError(t, gojson.Unmarshal(rec.Body.Bytes(), &stats))
	assert.True(t, stats.Registry.Frozen)
	assert.Equal(t, true, stats.Tree["loaded"])
	assert.Equal(t, float64(1), stats.Tree["objects"])

	rec = get(t, srv.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status": "ok"`)
}

func TestServer_ReloadServesNewTree(t *testing.T) {
	doc := devDoc
	srv, store := testServer(t, &doc)

	first := get(t, srv.Handler(), "/api/tree")
	assert.Contains(t, first.Body.String(), "users")

	doc = strings.Replace(devDoc, `"users"`, `"members"`, 1)
	require.NoError(t, srv.OnChange([]string{"model.json"}))

	second := get(t, srv.Handler(), "/api/tree")
	assert.Contains(t, second.Body.String(), "members")
	assert.Equal(t, int64(2), store.Version())
}

func TestServer_FailedReloadKeepsLastTree(t *testing.T) {
	doc := devDoc
	srv, store := testServer(t, &doc)

	doc = `{"metadata": {"children": [{"widget": {"name": "x"}}]}}`
	err := srv.OnChange([]string{"model.json"})
	require.Error(t, err)

	rec := get(t, srv.Handler(), "/api/tree")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "users")
	assert.Equal(t, int64(1), store.Version())
}

func TestServer_CachedResponsesAreStable(t *testing.T) {
	doc := devDoc
	srv, _ := testServer(t, &doc)

	first := get(t, srv.Handler(), "/api/tree")
	second := get(t, srv.Handler(), "/api/tree")
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestStore_RequiresBuilder(t *testing.T) {
	_, err := NewStore(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "builder")
}

func TestStore_CurrentBeforeReload(t *testing.T) {
	store, err := NewStore(func() (*loader.Loader, error) { return nil, nil })
	require.NoError(t, err)
	_, err = store.Current()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tree loaded")
}

func TestHub_BroadcastsReload(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.NotifyReload([]string{"model.json"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, gojson.Unmarshal(payload, &ev))
	assert.Equal(t, "reload", ev.Type)
	assert.Equal(t, []string{"model.json"}, ev.Files)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// Dialing through the full route table proves the upgrade works behind
// the logging middleware.
func TestServer_WebSocketRoute(t *testing.T) {
	doc := devDoc
	srv, _ := testServer(t, &doc)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.Hub().ConnectionCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	doc = strings.Replace(devDoc, `"users"`, `"members"`, 1)
	require.NoError(t, srv.OnChange([]string{"model.json"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"reload"`)
}
