package router

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/sernafernando/lcr-qr/config"
	"github.com/sernafernando/lcr-qr/internal/api/handler"
	"github.com/sernafernando/lcr-qr/internal/repository"
	"github.com/sernafernando/lcr-qr/internal/service"
	"github.com/sernafernando/lcr-qr/pkg/database"
	"github.com/sernafernando/lcr-qr/pkg/qrcode"
	"github.com/sernafernando/lcr-qr/pkg/response"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:      8080,
			BodyLimit: 1 << 20,
			CORS:      config.CORSConfig{AllowOrigins: []string{"*"}},
		},
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"},
		Log:      config.LogConfig{Level: "error"},
		QR:       config.QRConfig{Scale: 4, Level: "L"},
		Registry: config.RegistryConfig{ClaimAttempts: 3, DefaultPageSize: 50},
	}
}

// setupServer 组装完整依赖链：SQLite 内存库 → Repository → Service → Handler → Router
func setupServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := testConfig()
	logger := zap.NewNop()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := database.RunMigrations(db, logger); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	enc, err := qrcode.NewEncoder(&cfg.QR)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, enc, logger)
	return Setup(cfg, handler.NewHandler(svc), logger)
}

func do(t *testing.T, srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func expect(t *testing.T, w *httptest.ResponseRecorder, status int, body string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d (%s)", status, w.Code, w.Body.String())
	}
	if body != "" && w.Body.String() != body {
		t.Fatalf("expected body %q, got %q", body, w.Body.String())
	}
}

var usedPattern = regexp.MustCompile(`^Código ya usado el \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.$`)

func TestScenario_LoadValidateRegister(t *testing.T) {
	srv := setupServer(t)

	expect(t, do(t, srv, "POST", "/load-codes", `["A1","A2"]`), http.StatusOK, "Códigos cargados exitosamente.")
	expect(t, do(t, srv, "GET", "/validate-code?code=A1", ""), http.StatusOK, "Código válido. Acceso permitido.")

	first := do(t, srv, "GET", "/validate-code?code=A1", "")
	expect(t, first, http.StatusForbidden, "")
	if !usedPattern.MatchString(first.Body.String()) {
		t.Fatalf("unexpected already-used body: %q", first.Body.String())
	}
	// 之后每次返回相同时间戳
	second := do(t, srv, "GET", "/validate-code?code=A1", "")
	if second.Body.String() != first.Body.String() {
		t.Errorf("timestamp changed: %q vs %q", first.Body.String(), second.Body.String())
	}

	expect(t, do(t, srv, "GET", "/validate-code?code=ZZZ", ""), http.StatusNotFound, "Código no encontrado.")
	expect(t, do(t, srv, "POST", "/register-person", `{}`), http.StatusBadRequest, "Nombre es requerido.")

	// A2 仍未使用，登记后被占用，二维码负载指向 A2
	reg := do(t, srv, "POST", "/register-person", `{"name":"Ana <Pérez>"}`)
	expect(t, reg, http.StatusOK, "")
	var body struct {
		QR string `json:"qr"`
	}
	if err := json.Unmarshal(reg.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if !strings.HasPrefix(body.QR, qrcode.DataURIPrefix) {
		t.Fatalf("unexpected qr prefix: %.40s", body.QR)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(body.QR, qrcode.DataURIPrefix))
	if err != nil {
		t.Fatalf("qr is not base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("qr is not a png: %v", err)
	}

	used := do(t, srv, "GET", "/validate-code?code=A2", "")
	expect(t, used, http.StatusForbidden, "")
	if !usedPattern.MatchString(used.Body.String()) {
		t.Errorf("registered code should report its registration date: %q", used.Body.String())
	}

	// 再次登记：无可用码，自动生成新码
	expect(t, do(t, srv, "POST", "/register-person", `{"name":"Luis"}`), http.StatusOK, "")

	stats := do(t, srv, "GET", "/codes/stats", "")
	expect(t, stats, http.StatusOK, "")
	var statsResp struct {
		Data struct {
			Total  int64 `json:"total"`
			Used   int64 `json:"used"`
			Unused int64 `json:"unused"`
		} `json:"data"`
	}
	json.Unmarshal(stats.Body.Bytes(), &statsResp)
	if statsResp.Data.Total != 3 || statsResp.Data.Used != 3 || statsResp.Data.Unused != 0 {
		t.Errorf("unexpected stats: %+v", statsResp.Data)
	}
}

func TestScenario_DuplicateLoadKeepsEarlierInserts(t *testing.T) {
	srv := setupServer(t)

	expect(t, do(t, srv, "POST", "/load-codes", `["A1"]`), http.StatusOK, "")
	w := do(t, srv, "POST", "/load-codes", `["B1","A1","C1"]`)
	expect(t, w, http.StatusInternalServerError, "")
	if !strings.HasPrefix(w.Body.String(), "Error al cargar los códigos: ") {
		t.Errorf("unexpected body: %q", w.Body.String())
	}

	expect(t, do(t, srv, "GET", "/validate-code?code=B1", ""), http.StatusOK, "")
	expect(t, do(t, srv, "GET", "/validate-code?code=C1", ""), http.StatusNotFound, "")
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	srv := setupServer(t)

	cases := []struct{ method, target string }{
		{"GET", "/load-codes"},
		{"POST", "/validate-code?code=A1"},
		{"GET", "/register-person"},
		{"DELETE", "/codes"},
		{"GET", "/unknown"},
		{"PUT", "/"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			w := do(t, srv, tc.method, tc.target, "")
			expect(t, w, http.StatusMethodNotAllowed, "Método no permitido.")
			if w.Header().Get(response.ErrorCodeHeader) == "" {
				t.Error("expected error code header")
			}
		})
	}
}

func TestRouter_HealthAndListing(t *testing.T) {
	srv := setupServer(t)

	expect(t, do(t, srv, "GET", "/health", ""), http.StatusOK, `{"status":"ok"}`)
	expect(t, do(t, srv, "POST", "/load-codes", `["A1","A2","A3"]`), http.StatusOK, "")
	expect(t, do(t, srv, "GET", "/validate-code?code=A2", ""), http.StatusOK, "")

	w := do(t, srv, "GET", "/codes?used=false&page_size=1", "")
	expect(t, w, http.StatusOK, "")
	var resp struct {
		Data response.PageData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Data.Pagination.Total != 2 || resp.Data.Pagination.TotalPages != 2 {
		t.Errorf("unexpected pagination: %+v", resp.Data.Pagination)
	}

	export := do(t, srv, "GET", "/codes/export", "")
	expect(t, export, http.StatusOK, "")
	if !strings.Contains(export.Header().Get("Content-Disposition"), ".xlsx") {
		t.Errorf("unexpected Content-Disposition: %s", export.Header().Get("Content-Disposition"))
	}
}

func TestRouter_BodyLimit(t *testing.T) {
	srv := setupServer(t)

	big := `["` + strings.Repeat("x", 2<<20) + `"]`
	w := do(t, srv, "POST", "/load-codes", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}
