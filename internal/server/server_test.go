package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/reoring/jsontab/internal/config"
	"github.com/reoring/jsontab/metadata"
)

func testConfig(outDir string) *config.Config {
	return &config.Config{
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
		Convert: config.ConvertConfig{
			Compression:    "none",
			OnDuplicateKey: "warn",
			ArtifactPrefix: "jsontab",
			OutputDir:      outDir,
		},
		Server: config.ServerConfig{
			Addr:            "127.0.0.1:0",
			Root:            filepath.Dir(outDir),
			MaxConcurrent:   1,
			MaxWait:         20 * time.Millisecond,
			ShutdownTimeout: time.Second,
			MaxBodyBytes:    1 << 16,
		},
	}
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	out := t.TempDir()
	s, err := New(testConfig(out))
	require.NoError(t, err)
	return s, out
}

func writeInput(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func post(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/convert", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

type convertBody struct {
	JobID        string          `json:"jobId"`
	ArtifactPath string          `json:"artifactPath"`
	Rows         int             `json:"rows"`
	Columns      int             `json:"columns"`
	Elements     int             `json:"elements"`
	Checksum     string          `json:"checksum"`
	Schema       json.RawMessage `json:"schema"`
	Warnings     []WarningEntry  `json:"warnings"`
}

func TestConvert_OK(t *testing.T) {
	s, out := newTestServer(t)
	in := writeInput(t, `{"items":[{"a":1,"a":"x","tags":["p","q"]}]}`)

	rec := post(t, s, mustJSON(t, ConvertRequest{Path: in}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body convertBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, out, filepath.Dir(body.ArtifactPath))
	require.Contains(t, filepath.Base(body.ArtifactPath), body.JobID)
	require.Equal(t, 2, body.Rows)
	require.Equal(t, 3, body.Columns)
	require.Equal(t, 1, body.Elements)
	require.Len(t, body.Checksum, 16)
	require.Len(t, body.Warnings, 1)
	require.Equal(t, "duplicate_key", body.Warnings[0].Code)

	var doc metadata.Document
	require.NoError(t, json.Unmarshal(body.Schema, &doc))
	require.Equal(t, []string{"a", "a 2", "tags"}, doc.Names())

	csv, err := os.ReadFile(body.ArtifactPath)
	require.NoError(t, err)
	require.Equal(t, "1,\"x\",\"p\"\n1,\"x\",\"q\"\n", string(csv))
}

func TestConvert_YAMLSchema(t *testing.T) {
	s, _ := newTestServer(t)
	in := writeInput(t, `{"items":[{"n":1}]}`)

	rec := post(t, s, mustJSON(t, ConvertRequest{Path: in, Format: "yaml"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Schema string `json:"schema"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body.Schema, "columns:")
	require.Contains(t, body.Schema, "analyticalType: measure")
}

func TestConvert_RequestOverridesOutputDir(t *testing.T) {
	s, _ := newTestServer(t)
	other := t.TempDir()
	rec := post(t, s, mustJSON(t, ConvertRequest{Path: writeInput(t, `{"a":[1]}`), OutputDir: other}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body convertBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	want, err := filepath.EvalSymlinks(other)
	require.NoError(t, err)
	require.Equal(t, want, filepath.Dir(body.ArtifactPath))
}

func TestConvert_PathsConfinedToRoot(t *testing.T) {
	s, out := newTestServer(t)
	outside := filepath.Join(filepath.Dir(out), "outside")
	require.NoError(t, os.MkdirAll(outside, 0o755))
	s.root = filepath.Join(filepath.Dir(out), "root")
	require.NoError(t, os.MkdirAll(s.root, 0o755))
	s.root, _ = filepath.EvalSymlinks(s.root)

	inside := filepath.Join(s.root, "in.json")
	require.NoError(t, os.WriteFile(inside, []byte(`{"a":[{"apiKey":1}]}`), 0o644))
	secret := filepath.Join(outside, "secret.json")
	require.NoError(t, os.WriteFile(secret, []byte(`{"a":[{"password":1}]}`), 0o644))
	require.NoError(t, os.Symlink(secret, filepath.Join(s.root, "link.json")))
	require.NoError(t, os.Symlink(outside, filepath.Join(s.root, "outlink")))

	cases := []struct {
		name string
		req  ConvertRequest
	}{
		{"absolute input outside", ConvertRequest{Path: secret}},
		{"dot-dot input", ConvertRequest{Path: "../outside/secret.json"}},
		{"symlinked input", ConvertRequest{Path: "link.json"}},
		{"output dir outside", ConvertRequest{Path: inside, OutputDir: outside}},
		{"symlinked output dir", ConvertRequest{Path: "in.json", OutputDir: "outlink"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, s, mustJSON(t, tc.req))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			require.Contains(t, rec.Body.String(), "outside the server root")
			require.NotContains(t, rec.Body.String(), "password")
		})
	}
	entries, err := os.ReadDir(outside)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	rec := post(t, s, mustJSON(t, ConvertRequest{Path: "in.json", OutputDir: "."}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body convertBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, s.root, filepath.Dir(body.ArtifactPath))
}

func TestNew_RequiresRoot(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Server.Root = ""
	_, err := New(cfg)
	require.ErrorContains(t, err, "JSONTAB_SERVER_ROOT")

	cfg.Server.Root = filepath.Join(t.TempDir(), "missing")
	_, err = New(cfg)
	require.Error(t, err)
}

func TestConvert_ErrorStatuses(t *testing.T) {
	s, out := newTestServer(t)
	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"not json", `{`, http.StatusBadRequest, "bad_request"},
		{"unknown field", `{"path":"x","extra":1}`, http.StatusBadRequest, "bad_request"},
		{"missing path", `{}`, http.StatusBadRequest, "bad_request"},
		{"bad format", mustJSON(t, ConvertRequest{Path: "x", Format: "xml"}), http.StatusBadRequest, "bad_request"},
		{"bad encoding", mustJSON(t, ConvertRequest{Path: writeInput(t, `{"a":[1]}`), Encoding: "klingon"}), http.StatusBadRequest, "bad_request"},
		{"root not object", mustJSON(t, ConvertRequest{Path: writeInput(t, `[1,2]`)}), http.StatusUnprocessableEntity, "format_error"},
		{"no array", mustJSON(t, ConvertRequest{Path: writeInput(t, `{"a":1}`)}), http.StatusUnprocessableEntity, "format_error"},
		{"missing file", mustJSON(t, ConvertRequest{Path: filepath.Join(t.TempDir(), "nope.json")}), http.StatusInternalServerError, "io_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, s, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			var er ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
			require.Equal(t, tc.code, er.Code)
			require.NotEmpty(t, er.Message)
			require.NotEmpty(t, er.RequestID)
		})
	}
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestConvert_BusyWhenLimiterFull(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.Limiter().Acquire(context.Background()))
	defer s.Limiter().Release()

	rec := post(t, s, mustJSON(t, ConvertRequest{Path: writeInput(t, `{"a":[1]}`)}))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	st := httptest.NewRecorder()
	s.Handler().ServeHTTP(st, req)
	require.Equal(t, http.StatusOK, st.Code)
	var status LimiterStatus
	require.NoError(t, json.NewDecoder(bytes.NewReader(st.Body.Bytes())).Decode(&status))
	require.Equal(t, LimiterStatus{Active: 1, Available: 0, MaxConcurrent: 1}, status)
}

func TestLimiter_AcquireReleaseDrain(t *testing.T) {
	l := NewLimiter(2, 10*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	require.ErrorIs(t, l.Acquire(ctx), ErrBusy)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, l.Acquire(canceled), context.Canceled)

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Release()
		l.Release()
	}()
	drainCtx, stop := context.WithTimeout(ctx, 2*time.Second)
	defer stop()
	require.NoError(t, l.WaitForDrain(drainCtx))
	require.Equal(t, 0, l.ActiveCount())
}

func TestListenAndServe_ShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
