package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/ContentImport/internal/config"
	"github.com/JonMunkholm/ContentImport/internal/core"
)

// fakeImporter records its calls and returns a fixed result.
type fakeImporter struct {
	mu       sync.Mutex
	paths    []string
	types    []string
	contents []string
	existed  []bool
	outcome  func(paths []string) *core.ImportOutcome
	err      error
	block    chan struct{}
}

func (f *fakeImporter) ImportBatch(ctx context.Context, paths []string, types []string) (*core.ImportOutcome, error) {
	f.mu.Lock()
	f.paths = append([]string(nil), paths...)
	f.types = append([]string(nil), types...)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		f.existed = append(f.existed, err == nil)
		f.contents = append(f.contents, string(data))
	}
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome != nil {
		return f.outcome(paths), nil
	}
	out := &core.ImportOutcome{BatchID: "batch-1", Status: core.StatusSuccess}
	for _, p := range paths {
		out.Files = append(out.Files, core.FileResult{Path: p, Created: 2})
	}
	return out, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Upload: config.UploadConfig{
			MaxRequestSize: 10 << 20,
			MaxFiles:       3,
			MaxConcurrent:  1,
			MaxWaitTime:    50 * time.Millisecond,
			Timeout:        5 * time.Second,
			StagingDir:     t.TempDir(),
		},
		Import: config.ImportConfig{AllowedImageTypes: []string{".jpg", ".png"}},
	}
}

func newTestServer(t *testing.T, imp Importer, cfg *config.Config) *Server {
	t.Helper()
	return NewServer(imp, fakePinger{}, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type upload struct {
	name    string
	content string
}

func multipartRequest(t *testing.T, files []upload, imageTypes ...string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(fw, f.content) //nolint:errcheck
	}
	for _, it := range imageTypes {
		mw.WriteField("imageTypes", it) //nolint:errcheck
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleImport_Success(t *testing.T) {
	imp := &fakeImporter{}
	cfg := testConfig(t)
	srv := newTestServer(t, imp, cfg)

	req := multipartRequest(t, []upload{
		{"items.CSV", "Name,Title,Description,Image\n"},
		{"more.xlsx", "xlsx-bytes"},
	}, "PNG", ".webp", ".png")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp importResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Created != 4 || resp.Message != "All files processed successfully." {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Files[0].File != "items.CSV" || resp.Files[1].File != "more.xlsx" {
		t.Errorf("files reported as %q, %q", resp.Files[0].File, resp.Files[1].File)
	}

	if got := strings.Join(imp.types, ","); got != ".png,.webp" {
		t.Errorf("image types = %q, want normalized .png,.webp", got)
	}
	if len(imp.paths) != 2 || filepath.Ext(imp.paths[0]) != ".csv" || filepath.Dir(imp.paths[0]) != cfg.Upload.StagingDir {
		t.Errorf("staged paths = %v", imp.paths)
	}
	if !imp.existed[1] || imp.contents[1] != "xlsx-bytes" {
		t.Error("importer did not see the staged content")
	}
	for _, p := range imp.paths {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("staged file %s not cleaned up", p)
		}
	}
}

func TestHandleImport_DefaultImageTypes(t *testing.T) {
	imp := &fakeImporter{}
	srv := newTestServer(t, imp, testConfig(t))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, multipartRequest(t, []upload{{"a.csv", "x"}}))

	if got := strings.Join(imp.types, ","); got != ".jpg,.png" {
		t.Errorf("image types = %q, want configured defaults", got)
	}
}

func TestHandleImport_FailureReturns400WithOutcome(t *testing.T) {
	imp := &fakeImporter{outcome: func(paths []string) *core.ImportOutcome {
		return &core.ImportOutcome{
			BatchID: "b",
			Status:  core.StatusPartialFailure,
			Files: []core.FileResult{
				{Path: paths[0], Created: 1, Errors: []*core.ImportError{
					{Kind: core.KindDuplicateItem, File: paths[0], Row: 3, Value: "cat"},
				}},
				{Path: paths[1], Errors: []*core.ImportError{
					{Kind: core.KindFileNotFound, File: paths[1]},
				}},
			},
		}
	}}
	srv := newTestServer(t, imp, testConfig(t))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, multipartRequest(t, []upload{{"one.csv", "x"}, {"two.csv", "y"}}, ".png"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp importResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	want := "Some errors occurred: Some row errors: Duplicate item: cat (Row 3); File not found: two.csv"
	if resp.Message != want {
		t.Errorf("Message = %q, want %q", resp.Message, want)
	}
	if resp.Status != core.StatusPartialFailure {
		t.Errorf("Status = %v", resp.Status)
	}
	e := resp.Files[0].Errors[0]
	if e.Kind != core.KindDuplicateItem || e.Code != "ROW001" || e.Row != 3 {
		t.Errorf("row error = %+v", e)
	}
	if !strings.Contains(rec.Body.String(), `"kind":"DuplicateItem"`) {
		t.Errorf("kind not rendered by name: %s", rec.Body.String())
	}
}

func TestHandleImport_NoFiles(t *testing.T) {
	imp := &fakeImporter{}
	srv := newTestServer(t, imp, testConfig(t))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, multipartRequest(t, nil, ".png"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Message != "No file selected." || resp.Code != "REQ001" {
		t.Errorf("resp = %+v", resp)
	}
	if imp.paths != nil {
		t.Error("importer called without files")
	}
}

func TestHandleImport_TooManyFiles(t *testing.T) {
	srv := newTestServer(t, &fakeImporter{}, testConfig(t))
	files := []upload{{"a.csv", "1"}, {"b.csv", "2"}, {"c.csv", "3"}, {"d.csv", "4"}}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, multipartRequest(t, files))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleImport_ImporterErrorStillCleansUp(t *testing.T) {
	imp := &fakeImporter{err: core.ErrInvalidRequest}
	srv := newTestServer(t, imp, testConfig(t))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, multipartRequest(t, []upload{{"a.csv", "x"}}, ".png"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if _, err := os.Stat(imp.paths[0]); !errors.Is(err, os.ErrNotExist) {
		t.Error("staged file left behind after importer error")
	}
}

func TestHandleImport_Busy(t *testing.T) {
	imp := &fakeImporter{block: make(chan struct{})}
	srv := newTestServer(t, imp, testConfig(t))

	first := multipartRequest(t, []upload{{"a.csv", "x"}})
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Router().ServeHTTP(httptest.NewRecorder(), first)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for srv.limiter.ActiveCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, multipartRequest(t, []upload{{"b.csv", "y"}}))
	close(imp.block)
	<-done

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "UPL001") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandleImport_HTMX(t *testing.T) {
	srv := newTestServer(t, &fakeImporter{}, testConfig(t))

	req := multipartRequest(t, []upload{{"<b>.csv", "x"}})
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "All files processed successfully.") {
		t.Errorf("body = %s", body)
	}
	if strings.Contains(body, "<b>.csv") {
		t.Error("file name not escaped")
	}
}

func TestHandleImport_APIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	srv := newTestServer(t, &fakeImporter{}, cfg)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, multipartRequest(t, []upload{{"a.csv", "x"}}))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}

	req := multipartRequest(t, []upload{{"a.csv", "x"}})
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status with key = %d, want 200", rec.Code)
	}
}

func TestHandleIndex(t *testing.T) {
	srv := newTestServer(t, &fakeImporter{}, testConfig(t))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, `action="/api/import"`) {
		t.Fatalf("status = %d, body = %s", rec.Code, body)
	}
	if !strings.Contains(body, `value=".png" checked`) || strings.Contains(body, `value=".webp" checked`) {
		t.Errorf("image type defaults not reflected: %s", body)
	}
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name string
		db   Pinger
		want int
	}{
		{"ok", fakePinger{}, http.StatusOK},
		{"down", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&fakeImporter{}, tt.db, testConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestNormalizeImageTypes(t *testing.T) {
	got := normalizeImageTypes([]string{" PNG ", ".jpg,.JPEG", "", ".png"})
	want := []string{".png", ".jpg", ".jpeg"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("normalizeImageTypes() = %v, want %v", got, want)
	}
}

func TestRespondError_LogLevelFollowsMapping(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	s := NewServer(&fakeImporter{}, fakePinger{}, testConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		err       error
		wantLevel string
		wantCode  string
	}{
		{core.ErrNoFiles, "level=WARN", "REQ001"},
		{errors.New("disk on fire"), "level=ERROR", "ERR000"},
	}
	for _, tt := range tests {
		buf.Reset()
		req := httptest.NewRequest(http.MethodPost, "/api/import", nil)
		rec := httptest.NewRecorder()
		s.respondError(rec, req, tt.err, statusFor(tt.err))

		if !strings.Contains(buf.String(), tt.wantLevel) || !strings.Contains(buf.String(), tt.err.Error()) {
			t.Errorf("log for %v = %q, want %s with the technical error", tt.err, buf.String(), tt.wantLevel)
		}
		var body ErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.Code != tt.wantCode {
			t.Errorf("code for %v = %q, want %q", tt.err, body.Code, tt.wantCode)
		}
	}
}
