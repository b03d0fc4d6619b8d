package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"StructLedger/internal/ledger"
	"StructLedger/internal/observability"
	"StructLedger/internal/product"
	"StructLedger/internal/query"
	"StructLedger/internal/server"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newApp(t *testing.T) (*fiber.App, *observability.HealthChecker) {
	t.Helper()

	note, err := product.NewStructuredNote(product.StructuredNoteTerms{
		Symbol:            "SN-1",
		Underlying:        "XYZ",
		Currency:          "USD",
		Notional:          dec("100000"),
		Strike:            dec("100"),
		ParticipationRate: dec("1.0"),
		ProtectionLevel:   dec("0.9"),
		IssuerWallet:      "issuer",
		IssueDate:         day("2026-01-01"),
		MaturityDate:      day("2027-01-01"),
	})
	if err != nil {
		t.Fatalf("build note: %v", err)
	}

	book := ledger.NewBook()
	book.PutState(note)

	health := observability.NewHealthChecker()
	h := server.NewHandler(zerolog.Nop(), query.NewService(book), health)

	app := fiber.New()
	server.RegisterRoutes(app, h)
	return app, health
}

func doRequest(t *testing.T, app *fiber.App, path string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp, body
}

// ============================================================================
// Test: Product endpoints
// ============================================================================

func TestListProducts(t *testing.T) {
	app, _ := newApp(t)

	resp, body := doRequest(t, app, "/api/v1/products")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}

	var statuses []map[string]any
	if err := json.Unmarshal(body, &statuses); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(statuses) != 1 || statuses[0]["symbol"] != "SN-1" {
		t.Errorf("body: %s", body)
	}
}

func TestGetProduct(t *testing.T) {
	app, _ := newApp(t)

	resp, body := doRequest(t, app, "/api/v1/products/SN-1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}

	var status map[string]any
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status["product_type"] != "structured_note" {
		t.Errorf("product_type: %v", status["product_type"])
	}
}

func TestGetProduct_UnknownSymbolIs404(t *testing.T) {
	app, _ := newApp(t)

	resp, _ := doRequest(t, app, "/api/v1/products/NOPE")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

// ============================================================================
// Test: Probes
// ============================================================================

func TestHealthz(t *testing.T) {
	app, _ := newApp(t)

	resp, _ := doRequest(t, app, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestReadyz_FollowsHealthChecker(t *testing.T) {
	app, health := newApp(t)

	resp, _ := doRequest(t, app, "/ready")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("before ready: got %d, want 503", resp.StatusCode)
	}

	health.SetReady(true)
	resp, _ = doRequest(t, app, "/ready")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("after ready: got %d, want 200", resp.StatusCode)
	}
}
