package httpapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/http/handlers"
	"github.com/kris790/Kaleidoscope/internal/ledger"
	"github.com/kris790/Kaleidoscope/internal/middleware"
	"github.com/kris790/Kaleidoscope/internal/orchestrator"
	"github.com/kris790/Kaleidoscope/internal/poller"
	"github.com/kris790/Kaleidoscope/internal/providers/speech"
	"github.com/kris790/Kaleidoscope/internal/providers/video"
	"github.com/kris790/Kaleidoscope/internal/storage"
	"github.com/kris790/Kaleidoscope/internal/studio"
	"github.com/kris790/Kaleidoscope/internal/timeline"
)

type testServer struct {
	srv *httptest.Server
	svc *studio.Service
}

func newTestServer(t *testing.T, balance int, secret string) *testServer {
	t.Helper()
	l, err := ledger.New(ledger.Options{AccountID: "acct", Tier: domain.TierMid, Balance: balance})
	require.NoError(t, err)
	media, err := storage.NewFileStore(t.TempDir(), "")
	require.NoError(t, err)
	orch, err := orchestrator.New(orchestrator.Options{
		Video:  video.NewSynthetic(video.SyntheticOptions{Polls: 1}),
		Speech: speech.NewSynthetic(),
		Ledger: l,
		Media:  media,
		Config: orchestrator.Config{Poll: poller.Options{Interval: time.Millisecond}},
	})
	require.NoError(t, err)
	svc, err := studio.New(studio.Options{Store: timeline.NewStore(timeline.StoreOptions{}), Orchestrator: orch, Ledger: l, Media: media})
	require.NoError(t, err)

	app := handlers.NewApp(svc, ledger.DefaultPricing(), "synthetic", zerolog.Nop())
	srv := httptest.NewServer(NewRouter(app, RouterOptions{CORSOrigins: []string{"*"}, JWTSecret: secret}))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return &testServer{srv: srv, svc: svc}
}

func (s *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type projectJSON struct {
	ID            string               `json:"id"`
	Status        domain.ProjectStatus `json:"status"`
	Clips         []domain.Clip        `json:"clips"`
	TotalDuration int                  `json:"total_duration_seconds"`
	AudioTrack    *domain.AudioTrack   `json:"audio_track"`
}

func (s *testServer) createProject(t *testing.T, prompt string) projectJSON {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/v1/projects", `{"prompt":"`+prompt+`","audio_prompt":"wind over the dunes"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[projectJSON](t, resp)
}

func (s *testServer) waitSettled(t *testing.T, id string) projectJSON {
	t.Helper()
	var p projectJSON
	require.Eventually(t, func() bool {
		resp := s.do(t, http.MethodGet, "/v1/projects/"+id, "")
		if resp.StatusCode != http.StatusOK {
			return false
		}
		p = decodeBody[projectJSON](t, resp)
		return p.Status != domain.StatusGenerating
	}, 5*time.Second, 10*time.Millisecond)
	return p
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, 100, "")
	resp := s.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "synthetic", body["backend"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestCatalogListsTiers(t *testing.T) {
	s := newTestServer(t, 100, "")
	resp := s.do(t, http.MethodGet, "/v1/catalog", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[struct {
		Tiers []struct {
			Tier  domain.Tier      `json:"tier"`
			Quota domain.TierQuota `json:"quota"`
		} `json:"tiers"`
		Voices []string `json:"voices"`
	}](t, resp)
	require.Len(t, body.Tiers, 3)
	assert.Equal(t, domain.TierPremium, body.Tiers[2].Tier)
	assert.Equal(t, "1080p", body.Tiers[2].Quota.Resolution)
	assert.NotEmpty(t, body.Voices)
}

func TestGenerateExtendNarrateExport(t *testing.T) {
	s := newTestServer(t, 500, "")
	p := s.createProject(t, "sunset drive")

	resp := s.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/generate", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "/v1/projects/"+p.ID, resp.Header.Get("Location"))
	assert.Equal(t, domain.StatusGenerating, decodeBody[projectJSON](t, resp).Status)

	got := s.waitSettled(t, p.ID)
	require.Equal(t, domain.StatusCompleted, got.Status)
	require.Len(t, got.Clips, 1)

	resp = s.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/extend", `{"prompt":"the road turns to gravel"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	got = s.waitSettled(t, p.ID)
	require.Len(t, got.Clips, 2)
	assert.Equal(t, 12, got.TotalDuration)

	resp = s.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/narrate", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	got = s.waitSettled(t, p.ID)
	require.NotNil(t, got.AudioTrack)

	account := decodeBody[studio.AccountView](t, s.do(t, http.MethodGet, "/v1/account", ""))
	assert.Equal(t, 500-5-150-50, account.Balance)

	resp = s.do(t, http.MethodGet, "/v1/projects/"+p.ID+"/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"clips/01.mp4", "clips/02.mp4", "narration.wav", "manifest.json"}, names)

	logs := decodeBody[struct {
		Entries []timeline.LogEntry `json:"entries"`
	}](t, s.do(t, http.MethodGet, "/v1/projects/"+p.ID+"/log", ""))
	assert.NotEmpty(t, logs.Entries)
}

func TestExtendWithoutClipIsBadRequest(t *testing.T) {
	s := newTestServer(t, 500, "")
	p := s.createProject(t, "harbor at dawn")
	resp := s.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/extend", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateWithoutCreditsIsPaymentRequired(t *testing.T) {
	s := newTestServer(t, 2, "")
	p := s.createProject(t, "harbor at dawn")
	resp := s.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/generate", "")
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/v1/projects/"+p.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[projectJSON](t, resp)
	assert.Equal(t, domain.StatusIdle, got.Status)
	assert.Empty(t, got.Clips)
}

func TestNarrateWithoutScriptIsBadRequest(t *testing.T) {
	s := newTestServer(t, 100, "")
	resp := s.do(t, http.MethodPost, "/v1/projects", `{"prompt":"harbor at dawn"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	p := decodeBody[projectJSON](t, resp)

	resp = s.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/narrate", `{"text":"   "}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/v1/projects/"+p.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusIdle, decodeBody[projectJSON](t, resp).Status)
}

func TestUnknownProjectIsNotFound(t *testing.T) {
	s := newTestServer(t, 100, "")
	for _, path := range []string{"/v1/projects/nope", "/v1/projects/nope/log", "/v1/projects/nope/export"} {
		resp := s.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	resp := s.do(t, http.MethodPost, "/v1/projects/nope/generate", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPatchAndDeleteProject(t *testing.T) {
	s := newTestServer(t, 100, "")
	p := s.createProject(t, "city lights")

	resp := s.do(t, http.MethodPatch, "/v1/projects/"+p.ID, `{"title":"Night city","style":"noir"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPatch, "/v1/projects/"+p.ID, `{"style":"not-a-style"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/v1/projects/"+p.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = s.do(t, http.MethodGet, "/v1/projects/"+p.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelIdleProjectIsBadRequest(t *testing.T) {
	s := newTestServer(t, 100, "")
	p := s.createProject(t, "city lights")
	resp := s.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/cancel", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTopUp(t *testing.T) {
	s := newTestServer(t, 10, "")
	resp := s.do(t, http.MethodPost, "/v1/account/top-up", `{"amount":40}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 50, decodeBody[studio.AccountView](t, resp).Balance)

	resp = s.do(t, http.MethodPost, "/v1/account/top-up", `{"amount":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokensAreScopedToTheAccount(t *testing.T) {
	s := newTestServer(t, 100, "secret")

	resp := s.do(t, http.MethodGet, "/v1/account", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	get := func(account string) int {
		token, err := middleware.SignToken("secret", account, "MID", time.Minute)
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/v1/account", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := s.srv.Client().Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusOK, get("acct"))
	assert.Equal(t, http.StatusForbidden, get("someone-else"))

	resp = s.do(t, http.MethodGet, "/v1/catalog", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
