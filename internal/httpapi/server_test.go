package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/toplist/internal/catalog"
	"github.com/roach88/toplist/internal/engine"
	"github.com/roach88/toplist/internal/gateway"
	"github.com/roach88/toplist/internal/logging"
	"github.com/roach88/toplist/internal/metrics"
	"github.com/roach88/toplist/internal/rank"
	"github.com/roach88/toplist/internal/session"
	"github.com/roach88/toplist/internal/store"
)

type testEnv struct {
	server  *Server
	manager *session.Manager
	mailbox *gateway.Mailbox
	store   *session.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat := &catalog.Catalog{
		Games: []store.Game{
			{ID: "azul", Name: "Azul", UsersRated: 30},
			{ID: "brass", Name: "Brass", UsersRated: 20},
			{ID: "catan", Name: "Catan", UsersRated: 10},
		},
		Users: map[string][]string{"alice": {"azul", "brass", "catan"}},
	}

	mem := session.NewMemoryStore()
	mailbox := gateway.NewMailbox()
	prom := metrics.New()
	mgr := session.New(mem, mailbox,
		session.WithSource(catalog.NewStaticSource(cat)),
		session.WithAuditLog(mem),
		session.WithMetrics(prom),
		session.WithIDGenerator(engine.NewFixedGenerator("s1", "s2")),
		session.WithLogger(logging.Discard()))
	mailbox.OnAnswer(mgr)

	games, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { games.Close() })
	require.NoError(t, catalog.Import(context.Background(), games, cat))

	srv := New(Deps{
		Ranker:   mgr,
		Mailbox:  mailbox,
		TopLists: mem,
		Catalog:  games,
		Metrics:  prom.Handler(),
		Logger:   logging.Discard(),
	})
	return &testEnv{server: srv, manager: mgr, mailbox: mailbox, store: mem}
}

type response struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Error   *errorField     `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.server.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var r response
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &r), string(raw))
	}
	return resp.StatusCode, r
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestRanking_FullFlow(t *testing.T) {
	e := newTestEnv(t)

	status, r := e.do(t, "POST", "/api/ranking/start", `{"user_id":"alice"}`)
	require.Equal(t, http.StatusOK, status)
	res := decode[session.Result](t, r.Data)
	require.Equal(t, session.ActionPresent, res.Action)

	for res.Action == session.ActionPresent {
		status, r = e.do(t, "GET", "/api/ranking/alice/prompt", "")
		require.Equal(t, http.StatusOK, status)
		cmp := decode[rank.Comparison](t, r.Data)
		assert.Equal(t, res.Comparison.Fingerprint, cmp.Fingerprint)

		body := `{"user_id":"alice","fingerprint":"` + cmp.Fingerprint + `","choice":"l"}`
		status, r = e.do(t, "POST", "/api/ranking/answer", body)
		require.Equal(t, http.StatusOK, status)
		res = decode[session.Result](t, r.Data)
	}
	require.Equal(t, session.ActionFinished, res.Action)
	// Always preferring the newcomer reverses insertion order after the seed.
	assert.Equal(t, []string{"catan", "azul", "brass"}, rank.IDs(res.Ordering))

	status, r = e.do(t, "GET", "/api/ranking/alice/top", "")
	require.Equal(t, http.StatusOK, status)
	tl := decode[rank.TopList](t, r.Data)
	require.Len(t, tl.Placements, 3)
	assert.Equal(t, "catan", tl.Placements[0].Candidate.ID)

	status, r = e.do(t, "GET", "/api/ranking/alice/progress", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, rank.StatusCompleted, decode[rank.Progress](t, r.Data).Status)
}

func TestAnswer_StaleIsNoOp(t *testing.T) {
	e := newTestEnv(t)
	_, r := e.do(t, "POST", "/api/ranking/start", `{"user_id":"alice"}`)
	fp := decode[session.Result](t, r.Data).Comparison.Fingerprint

	body := `{"user_id":"alice","fingerprint":"` + fp + `","choice":"right"}`
	status, _ := e.do(t, "POST", "/api/ranking/answer", body)
	require.Equal(t, http.StatusOK, status)

	status, r = e.do(t, "POST", "/api/ranking/answer", body)
	require.Equal(t, http.StatusOK, status)
	res := decode[session.Result](t, r.Data)
	assert.Equal(t, session.ActionNoOp, res.Action)
	assert.Equal(t, session.ReasonStale, res.Reason)
}

func TestAnswer_Validation(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"user_id":`},
		{"missing user", `{"fingerprint":"00112233445566778899aabbccddeeff","choice":"left"}`},
		{"short fingerprint", `{"user_id":"alice","fingerprint":"abc","choice":"left"}`},
		{"non-hex fingerprint", `{"user_id":"alice","fingerprint":"zz112233445566778899aabbccddeeff","choice":"left"}`},
		{"unknown choice", `{"user_id":"alice","fingerprint":"00112233445566778899aabbccddeeff","choice":"both"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, r := e.do(t, "POST", "/api/ranking/answer", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			require.NotNil(t, r.Error)
			assert.Equal(t, string(rank.KindInvalidInput), r.Error.Code)
		})
	}
}

func TestNoSession_NotFound(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/api/ranking/bob/prompt", "/api/ranking/bob/progress", "/api/ranking/bob/top"} {
		status, r := e.do(t, "GET", path, "")
		assert.Equal(t, http.StatusNotFound, status, path)
		require.NotNil(t, r.Error, path)
		assert.Equal(t, string(rank.KindNoActiveSession), r.Error.Code, path)
	}

	status, _ := e.do(t, "POST", "/api/ranking/cancel", `{"user_id":"bob"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStart_NothingToRank(t *testing.T) {
	e := newTestEnv(t)
	status, r := e.do(t, "POST", "/api/ranking/start", `{"user_id":"bob"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, session.ActionNothingToRank, decode[session.Result](t, r.Data).Action)
}

func TestCancelAndResume(t *testing.T) {
	e := newTestEnv(t)
	_, r := e.do(t, "POST", "/api/ranking/start", `{"user_id":"alice"}`)
	want := decode[session.Result](t, r.Data).Comparison.Fingerprint

	status, r := e.do(t, "POST", "/api/ranking/resume", `{"user_id":"alice"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, want, decode[session.Result](t, r.Data).Comparison.Fingerprint)

	status, r = e.do(t, "POST", "/api/ranking/cancel", `{"user_id":"alice"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, session.ActionCancelled, decode[session.Result](t, r.Data).Action)

	_, found := e.mailbox.Outstanding("alice")
	assert.False(t, found, "cancel withdraws the prompt")
}

func TestPrompt_FallsBackToStoredComparison(t *testing.T) {
	e := newTestEnv(t)
	_, r := e.do(t, "POST", "/api/ranking/start", `{"user_id":"alice"}`)
	want := decode[session.Result](t, r.Data).Comparison.Fingerprint

	// An empty mailbox stands in for a restarted process.
	require.NoError(t, e.mailbox.CancelPrompt(context.Background(), "alice"))

	status, r := e.do(t, "GET", "/api/ranking/alice/prompt", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, want, decode[rank.Comparison](t, r.Data).Fingerprint)
}

func TestSupersedingStart_ClearsPrompt(t *testing.T) {
	e := newTestEnv(t)
	_, r := e.do(t, "POST", "/api/ranking/start", `{"user_id":"alice"}`)
	require.Equal(t, session.ActionPresent, decode[session.Result](t, r.Data).Action)

	// A single-game restart completes without presenting anything.
	res, err := e.manager.Start(context.Background(), "alice", []rank.Candidate{{ID: "azul"}})
	require.NoError(t, err)
	require.Equal(t, session.ActionFinished, res.Action)

	status, r := e.do(t, "GET", "/api/ranking/alice/prompt", "")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, r.Error)
	assert.Equal(t, string(rank.KindNoActiveSession), r.Error.Code)
}

func gameIDs(t *testing.T, raw json.RawMessage) []string {
	t.Helper()
	body := decode[gamesResponse](t, raw)
	ids := make([]string, len(body.Games))
	for i, g := range body.Games {
		ids[i] = g.ID
	}
	return ids
}

func TestSearchGames(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"substring", "/api/games?q=a", []string{"azul", "brass", "catan"}},
		{"exact", "/api/games?q=AZUL&exact=true", []string{"azul"}},
		{"limit", "/api/games?q=a&limit=1", []string{"azul"}},
		{"no match", "/api/games?q=zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, r := e.do(t, "GET", tt.path, "")
			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.want, gameIDs(t, r.Data))
		})
	}
}

func TestSearchGames_Validation(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/api/games", "/api/games?q=%20", "/api/games?q=a&limit=-1", "/api/games?q=a&limit=x"} {
		status, r := e.do(t, "GET", path, "")
		assert.Equal(t, http.StatusBadRequest, status, path)
		require.NotNil(t, r.Error, path)
		assert.Equal(t, string(rank.KindInvalidInput), r.Error.Code, path)
	}
}

func TestUserGames(t *testing.T) {
	e := newTestEnv(t)

	status, r := e.do(t, "GET", "/api/users/alice/games", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"azul", "brass", "catan"}, gameIDs(t, r.Data))

	status, r = e.do(t, "GET", "/api/users/bob/games", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, gameIDs(t, r.Data))
}

func TestCatalogRoutesNeedCatalog(t *testing.T) {
	srv := New(Deps{Mailbox: gateway.NewMailbox(), Logger: logging.Discard()})
	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/games?q=a", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsAndHealth(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, "POST", "/api/ranking/start", `{"user_id":"alice"}`)

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := e.server.App().Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "toplist_sessions_started_total 1")

	status, _ := e.do(t, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestHealth_Unhealthy(t *testing.T) {
	srv := New(Deps{
		Mailbox: gateway.NewMailbox(),
		Health:  func(context.Context) error { return errors.New("db down") },
		Logger:  logging.Discard(),
	})
	resp, err := srv.App().Test(httptest.NewRequest("GET", "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind rank.ErrorKind
		want int
	}{
		{rank.KindInvalidInput, http.StatusBadRequest},
		{rank.KindNoActiveSession, http.StatusNotFound},
		{rank.KindSourceUnavailable, http.StatusServiceUnavailable},
		{rank.KindStorage, http.StatusServiceUnavailable},
		{rank.KindStorageConflict, http.StatusServiceUnavailable},
		{rank.KindDelivery, http.StatusBadGateway},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(rank.NewError(tt.kind, "x")), string(tt.kind))
	}
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}
