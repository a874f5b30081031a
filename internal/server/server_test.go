package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/thinx/internal/assistant"
	"github.com/harunnryd/thinx/internal/config"
	"github.com/harunnryd/thinx/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAssistant struct {
	result  assistant.Result
	delay   time.Duration
	prompts []string
}

func (s *stubAssistant) Run(_ context.Context, prompt string, _ assistant.EmitFunc) assistant.Result {
	s.prompts = append(s.prompts, prompt)
	time.Sleep(s.delay)
	return s.result
}

type fixture struct {
	cfg       *config.Config
	handler   http.Handler
	history   *store.History
	assistant *stubAssistant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Paths: config.PathsConfig{
			Memory:    filepath.Join(root, "MEMORY.md"),
			History:   filepath.Join(root, "history"),
			Downloads: filepath.Join(root, "downloads"),
			Web:       filepath.Join(root, "web"),
		},
		Chat: config.ChatConfig{UserID: "web_user", HistoryLimit: 100, ServiceName: "ThinxAI Web Chat"},
		Relay: config.RelayConfig{
			MaxEventSize:  config.DefaultRelayMaxEventSize,
			MaxChunkSize:  config.DefaultRelayMaxChunkSize,
			SummaryPrefix: config.DefaultRelaySummaryPrefix,
			ErrorPrefix:   config.DefaultRelayErrorPrefix,
		},
		Prompts: config.PromptsConfig{
			Chat:    config.ChatPromptConfig{Instructions: "be brief", HistoryLoad: 20, HistoryWindow: 10},
			DrawBot: config.DrawBotPromptConfig{Instructions: "draw", HistoryLoad: 10, HistoryWindow: 6, IdentitySuffix: "_draw_bot"},
		},
		Upload: config.UploadConfig{MaxBytes: 1024},
	}
	cfg.Paths.AllowedRoots = []string{cfg.Paths.Downloads}
	require.NoError(t, os.MkdirAll(cfg.Paths.Downloads, 0755))
	require.NoError(t, os.MkdirAll(cfg.Paths.Web, 0755))

	worker, err := store.NewWorker(cfg.Paths.History, store.RuntimeConfig{})
	require.NoError(t, err)
	worker.Start()
	t.Cleanup(worker.Stop)

	history := store.NewHistory(worker)
	stub := &stubAssistant{result: assistant.Result{Text: "hi there"}}
	srv, err := New(cfg, history, stub)
	require.NoError(t, err)

	return &fixture{cfg: cfg, handler: srv.Routes(), history: history, assistant: stub}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// serve runs the routes behind a real listener with the given timeouts.
func (f *fixture) serve(t *testing.T, timeout time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewUnstartedServer(f.handler)
	srv.Config.ReadTimeout = timeout
	srv.Config.WriteTimeout = timeout
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

func (f *fixture) recorded(t *testing.T, identity string) []store.Entry {
	t.Helper()
	return f.history.ReadRecent(context.Background(), identity, 10)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.Error(t, err)
	_, err = New(&config.Config{}, nil, &stubAssistant{})
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ThinxAI Web Chat", body.Service)
	_, err := time.ParseInLocation(store.TimestampLayout, body.Timestamp, time.Local)
	assert.NoError(t, err)
}

func TestRequestIDIsPropagated(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(requestIDHeader, "01HZZZTESTID")
	rec := f.do(t, req)
	assert.Equal(t, "01HZZZTESTID", rec.Header().Get(requestIDHeader))
}

func TestHistoryEmptyIsArray(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestMessageStreamRecordsTurn(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/message/stream", strings.NewReader(`{"message":"hello"}`))
	rec := f.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `data: {"type":"response","content":"hi there"}`)
	assert.True(t, strings.HasSuffix(body, "data: {\"type\":\"done\"}\n\n"), body)

	require.Len(t, f.assistant.prompts, 1)
	assert.True(t, strings.HasPrefix(f.assistant.prompts[0], "be brief"))
	assert.True(t, strings.HasSuffix(f.assistant.prompts[0], "User message: hello"))

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	var entries []store.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, store.RoleUser, entries[0].Role)
	assert.Equal(t, "hello", entries[0].Content)
	assert.Equal(t, store.RoleAssistant, entries[1].Role)
	assert.Equal(t, "hi there", entries[1].Content)
}

func TestDrawBotStreamUsesOwnIdentity(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/draw_bot/stream", strings.NewReader(`{"message":"a cat"}`))
	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	ctx := context.Background()
	assert.Len(t, f.history.ReadRecent(ctx, "web_user_draw_bot", 10), 2)
	assert.Empty(t, f.history.ReadRecent(ctx, "web_user", 10))
	assert.True(t, strings.HasPrefix(f.assistant.prompts[0], "draw"))
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	f := newFixture(t)
	body, contentType := multipartBody(t, "file", "my photo (1).png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := f.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, int64(9), res.Size)
	assert.Regexp(t, `^\d{8}_\d{6}_my photo 1\.png$`, res.Filename)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, f.cfg.Paths.Downloads, filepath.Dir(res.Path))
}

func TestUploadTooLargeRemovesPartialFile(t *testing.T) {
	f := newFixture(t)
	body, contentType := multipartBody(t, "file", "big.bin", bytes.Repeat([]byte("x"), 2048))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := f.do(t, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "File too large")

	files, err := os.ReadDir(f.cfg.Paths.Downloads)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestUploadWithoutFile(t *testing.T) {
	f := newFixture(t)

	body, contentType := multipartBody(t, "other", "x.txt", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file provided")

	rec = f.do(t, httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("plain")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report.pdf", "report.pdf"},
		{"café menu.txt", "caf menu.txt"},
		{"../../etc/passwd", "....etcpasswd"},
		{"日本語", "upload"},
		{"  ", "upload"},
		{"..", "upload"},
		{`a/b\c:d.txt`, "abcd.txt"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImageServing(t *testing.T) {
	f := newFixture(t)
	inside := filepath.Join(f.cfg.Paths.Downloads, "cat.png")
	require.NoError(t, os.WriteFile(inside, []byte("meow"), 0644))

	outsideDir := t.TempDir()
	outside := filepath.Join(outsideDir, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0644))
	link := filepath.Join(f.cfg.Paths.Downloads, "link.txt")
	require.NoError(t, os.Symlink(outside, link))

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/image", nil)
		q := req.URL.Query()
		if path != "" {
			q.Set("path", path)
		}
		req.URL.RawQuery = q.Encode()
		return f.do(t, req)
	}

	rec := get(inside)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "meow", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get("").Code)
	assert.Equal(t, http.StatusNotFound, get(outside).Code)
	assert.Equal(t, http.StatusNotFound, get(filepath.Join(f.cfg.Paths.Downloads, "..", filepath.Base(outsideDir), "secret.txt")).Code)
	assert.Equal(t, http.StatusNotFound, get(link).Code)
	assert.Equal(t, http.StatusNotFound, get(filepath.Join(f.cfg.Paths.Downloads, "missing.png")).Code)
	assert.Equal(t, http.StatusNotFound, get(f.cfg.Paths.Downloads).Code)
}

func TestPagesAndStaticFiles(t *testing.T) {
	f := newFixture(t)
	web := f.cfg.Paths.Web
	require.NoError(t, os.WriteFile(filepath.Join(web, "index.html"), []byte("<h1>chat</h1>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(web, "avatar.png"), []byte("png"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(web, "app.js"), []byte("js"), 0644))

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "<h1>chat</h1>"},
		{"/skills", http.StatusNotFound, "Skills page not found."},
		{"/draw_bot", http.StatusNotFound, "Draw Bot page not found."},
		{"/avatar.png", http.StatusOK, "png"},
		{"/missing.png", http.StatusNotFound, "File not found"},
		{"/static/app.js", http.StatusOK, "js"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := f.do(t, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			got, _ := io.ReadAll(rec.Body)
			assert.Equal(t, tt.body, string(got))
		})
	}
}

func TestMessageStreamOverHTTPServer(t *testing.T) {
	f := newFixture(t)
	srv := f.serve(t, 5*time.Second)

	resp, err := http.Post(srv.URL+"/api/message/stream", "application/json", strings.NewReader(`{"message":"hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "data: {\"type\":\"response\",\"content\":\"hi there\"}\n\ndata: {\"type\":\"done\"}\n\n", string(body))

	entries := f.recorded(t, "web_user")
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", entries[0].Content)
	assert.Equal(t, "hi there", entries[1].Content)
}

func TestSlowStreamOutlivesServerTimeouts(t *testing.T) {
	f := newFixture(t)
	f.assistant.delay = 400 * time.Millisecond
	srv := f.serve(t, 100*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/draw_bot/stream", "application/json", strings.NewReader(`{"message":"sketch"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(string(body), "data: {\"type\":\"done\"}\n\n"), string(body))
	assert.Len(t, f.recorded(t, "web_user_draw_bot"), 2)
}

func TestSlowUploadOutlivesReadTimeout(t *testing.T) {
	f := newFixture(t)
	srv := f.serve(t, 100*time.Millisecond)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", "slow.txt")
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		_, _ = part.Write([]byte("first "))
		time.Sleep(300 * time.Millisecond)
		_, _ = part.Write([]byte("second"))
		pw.CloseWithError(mw.Close())
	}()

	resp, err := http.Post(srv.URL+"/api/upload", mw.FormDataContentType(), pr)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out uploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	data, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	assert.Equal(t, "first second", string(data))
}

func TestImagePathIsNotExpanded(t *testing.T) {
	f := newFixture(t)
	t.Setenv("THINX_DL", f.cfg.Paths.Downloads)
	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.Paths.Downloads, "cat.png"), []byte("meow"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.Paths.Downloads, "$price.png"), []byte("5"), 0644))

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/image?path="+url.QueryEscape(path), nil)
		return f.do(t, req)
	}

	assert.Equal(t, http.StatusNotFound, get("$THINX_DL/cat.png").Code)

	rec := get(filepath.Join(f.cfg.Paths.Downloads, "$price.png"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Body.String())
}
