package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/tabula-web/backend/internal/extraction"
	mid "github.com/OFFIS-RIT/tabula-web/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/engine"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/pdf"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/region"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/table"
)

type fakeDocument struct {
	pages int
}

func (d fakeDocument) PageCount() (int, error) { return d.pages, nil }

func (d fakeDocument) PageBox(page int) (pdf.Box, error) {
	if page < 1 || page > d.pages {
		return pdf.Box{}, pdf.ErrPageNotFound
	}
	return pdf.Box{Width: 600, Height: 800}, nil
}

func (fakeDocument) Close() error { return nil }

type fakeEngine struct {
	calls  int
	tables []table.Raw
	boxes  []region.Detected
	err    error
}

func (e *fakeEngine) Extract(context.Context, engine.Request) ([]table.Raw, error) {
	e.calls++
	return e.tables, e.err
}

func (e *fakeEngine) Detect(context.Context, string, int) ([]region.Detected, error) {
	e.calls++
	return e.boxes, e.err
}

type fakeRasterizer struct{}

func (fakeRasterizer) RenderPage(context.Context, string, int, int) ([]byte, error) {
	return []byte("\x89PNG"), nil
}

type testServer struct {
	e       *echo.Echo
	engine  *fakeEngine
	tempDir string
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	eng := &fakeEngine{}
	tempDir := t.TempDir()
	cfg := Config{CORSOrigins: []string{"*"}, MaxUploadBytes: maxUpload}
	app := &mid.App{
		Extraction: extraction.NewService(extraction.NewServiceParams{
			Engine:     eng,
			Rasterizer: fakeRasterizer{},
			Opener: func(string) (pdf.Document, error) {
				return fakeDocument{pages: 2}, nil
			},
		}),
		MaxUploadBytes: maxUpload,
		TempDir:        tempDir,
		RenderDPI:      150,
	}
	return &testServer{e: New(cfg, app), engine: eng, tempDir: tempDir}
}

// post sends a multipart form with the file part first.
func (s *testServer) post(t *testing.T, path string, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(content)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) assertNoScratch(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp dir to be empty, found %d entries", len(entries))
	}
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected JSON error body, got %q", rec.Body.String())
	}
	return resp.Detail
}

var pdfBytes = []byte("%PDF-1.4\n%%EOF\n")

func grid(label string) table.Raw {
	return table.NewRaw(1, [][]string{{"h1", "h2"}, {label, "1"}, {label, "2"}})
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 1024)
	for _, path := range []string{"/", "/health"} {
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
			t.Fatalf("%s: unexpected response %d %s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestUnknownRouteUsesDetail(t *testing.T) {
	s := newTestServer(t, 1024)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound || detail(t, rec) == "" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestUploadChecks(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int
		fields   map[string]string
		status   int
	}{
		{name: "oversized pdf", filename: "big.pdf", size: 2048, status: http.StatusRequestEntityTooLarge},
		{name: "size checked before extension", filename: "big.txt", size: 2048, status: http.StatusRequestEntityTooLarge},
		{name: "wrong extension", filename: "notes.txt", size: 10, status: http.StatusBadRequest},
		{name: "missing file", filename: "", size: 0, status: http.StatusBadRequest},
		{name: "regions not an array", filename: "a.pdf", size: 10, fields: map[string]string{"regions": `{"page":1}`}, status: http.StatusBadRequest},
		{name: "bad area", filename: "a.pdf", size: 10, fields: map[string]string{"area": "1,2,3"}, status: http.StatusBadRequest},
		{name: "bad pages", filename: "a.pdf", size: 10, fields: map[string]string{"pages": "0-2"}, status: http.StatusBadRequest},
		{name: "unknown mode", filename: "a.pdf", size: 10, fields: map[string]string{"mode": "grid"}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 1024)
			rec := s.post(t, "/extract", tt.filename, bytes.Repeat([]byte("x"), tt.size), tt.fields)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if detail(t, rec) == "" {
				t.Fatal("expected a detail message")
			}
			if s.engine.calls != 0 {
				t.Fatal("engine must not run for rejected uploads")
			}
			s.assertNoScratch(t)
		})
	}
}

func TestExtract(t *testing.T) {
	s := newTestServer(t, 1024)
	s.engine.tables = []table.Raw{
		table.NewRaw(1, [][]string{{"x"}, {"y"}}),
		grid("a"),
		grid("b"),
	}

	rec := s.post(t, "/extract", "doc.PDF", pdfBytes, map[string]string{
		"regions": `[{"page":1,"top":0.1,"left":0.1,"bottom":0.3,"right":0.9}]`,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Tables []table.Table `json:"tables"`
		Count  int           `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || len(resp.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %+v", resp)
	}
	if resp.Tables[1].Index != 1 || resp.Tables[1].Data[0][0] != "b" || resp.Tables[1].Rows != 2 || resp.Tables[1].Columns != 2 {
		t.Fatalf("unexpected second table %+v", resp.Tables[1])
	}
	s.assertNoScratch(t)
}

func TestExtract_NoTables(t *testing.T) {
	s := newTestServer(t, 1024)
	rec := s.post(t, "/extract", "doc.pdf", pdfBytes, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"tables":[]`) {
		t.Fatalf("expected empty table list, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestExtract_EngineFailure(t *testing.T) {
	s := newTestServer(t, 1024)
	s.engine.err = errors.New("tabula failed: exit status 1: broken xref")

	rec := s.post(t, "/extract", "doc.pdf", pdfBytes, map[string]string{"mode": "stream"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if d := detail(t, rec); !strings.Contains(d, "broken xref") {
		t.Fatalf("expected engine output in detail, got %q", d)
	}
	s.assertNoScratch(t)
}

func TestDownload_IndexMatchesPreview(t *testing.T) {
	s := newTestServer(t, 1024)
	s.engine.tables = []table.Raw{
		table.NewRaw(1, [][]string{{"x"}, {"y"}}),
		grid("a"),
		grid("b"),
	}

	rec := s.post(t, "/download", "doc.pdf", pdfBytes, map[string]string{"table_index": "1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "h1,h2\nb,1\nb,2\n" {
		t.Fatalf("expected second surviving table, got %q", got)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); cd != `attachment; filename="table_2.csv"` {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	s.assertNoScratch(t)
}

func TestDownload_AllTablesJSON(t *testing.T) {
	s := newTestServer(t, 1024)
	s.engine.tables = []table.Raw{grid("a"), grid("b")}

	rec := s.post(t, "/download", "doc.pdf", pdfBytes, map[string]string{
		"table_index": "-1",
		"format":      "json",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got []struct {
		Index int `json:"index"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Index != 0 || got[1].Index != 1 {
		t.Fatalf("expected indices 0 and 1, got %+v", got)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); cd != `attachment; filename="tables_all.json"` {
		t.Fatalf("unexpected content disposition %q", cd)
	}
}

func TestDownload_AllTablesSingleSurvivor(t *testing.T) {
	s := newTestServer(t, 1024)
	s.engine.tables = []table.Raw{table.NewRaw(1, [][]string{{"x"}, {"y"}}), grid("a")}

	rec := s.post(t, "/download", "doc.pdf", pdfBytes, map[string]string{
		"table_index": "-1",
		"format":      "json",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != `[{"h1":"a","h2":"1"},{"h1":"a","h2":"2"}]` {
		t.Fatalf("expected row objects, got %s", got)
	}
}

func TestDownload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		tables []table.Raw
		fields map[string]string
		status int
	}{
		{name: "index out of range", tables: []table.Raw{grid("a")}, fields: map[string]string{"table_index": "1"}, status: http.StatusNotFound},
		{name: "no tables", fields: map[string]string{"table_index": "-1"}, status: http.StatusNotFound},
		{name: "below sentinel", tables: []table.Raw{grid("a")}, fields: map[string]string{"table_index": "-2"}, status: http.StatusNotFound},
		{name: "non numeric index", tables: []table.Raw{grid("a")}, fields: map[string]string{"table_index": "first"}, status: http.StatusBadRequest},
		{name: "unknown format", tables: []table.Raw{grid("a")}, fields: map[string]string{"format": "xml"}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 1024)
			s.engine.tables = tt.tables
			rec := s.post(t, "/download", "doc.pdf", pdfBytes, tt.fields)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			s.assertNoScratch(t)
		})
	}
}

func TestPageCount(t *testing.T) {
	s := newTestServer(t, 1024)
	rec := s.post(t, "/page-count", "doc.pdf", pdfBytes, nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"page_count":2}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	s.assertNoScratch(t)
}

func TestPageImage(t *testing.T) {
	s := newTestServer(t, 1024)

	rec := s.post(t, "/page-image", "doc.pdf", pdfBytes, map[string]string{"page": "2"})
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderContentType) != "image/png" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Header())
	}

	for page, status := range map[int]int{3: http.StatusNotFound, 0: http.StatusBadRequest} {
		rec := s.post(t, "/page-image", "doc.pdf", pdfBytes, map[string]string{"page": strconv.Itoa(page)})
		if rec.Code != status {
			t.Fatalf("page %d: expected %d, got %d", page, status, rec.Code)
		}
	}
	s.assertNoScratch(t)
}

func TestDetectTables(t *testing.T) {
	s := newTestServer(t, 1024)
	s.engine.boxes = []region.Detected{{Top: 80, Left: 60, Width: 480, Height: 160}}

	rec := s.post(t, "/detect-tables", "doc.pdf", pdfBytes, map[string]string{"page": "2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Areas []region.Region `json:"areas"`
		Page  int             `json:"page"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Page != 2 || len(resp.Areas) != 1 || resp.Areas[0].Page != 2 || resp.Areas[0].Right < 0.899 || resp.Areas[0].Right > 0.901 {
		t.Fatalf("unexpected response %+v", resp)
	}

	rec = s.post(t, "/detect-tables", "doc.pdf", pdfBytes, map[string]string{"page": "5"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing page, got %d", rec.Code)
	}
	s.assertNoScratch(t)
}

func TestCORSExposesContentDisposition(t *testing.T) {
	s := newTestServer(t, 1024)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "*" {
		t.Fatalf("expected wildcard origin, got %q", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderAccessControlExposeHeaders), echo.HeaderContentDisposition) {
		t.Fatalf("expected Content-Disposition to be exposed, got %q", rec.Header().Get(echo.HeaderAccessControlExposeHeaders))
	}
}

func TestRateLimit(t *testing.T) {
	app := &mid.App{MaxUploadBytes: 1024}
	e := New(Config{CORSOrigins: []string{"*"}, MaxUploadBytes: 1024, RateLimitRPS: 1}, app)

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected the burst to be limited, got %v", codes)
	}
}
