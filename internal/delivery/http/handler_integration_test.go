package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Vinay1094/kirana-store-automation/config"
	"github.com/Vinay1094/kirana-store-automation/internal/domain"
	"github.com/Vinay1094/kirana-store-automation/internal/infrastructure/cache"
	"github.com/Vinay1094/kirana-store-automation/internal/infrastructure/store"
	"github.com/Vinay1094/kirana-store-automation/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

type testServer struct {
	router *gin.Engine
	store  *store.SQLiteStore
	ids    map[string]int64
}

// setupTestServer wires a real store, cache and pipeline behind the router,
// seeded with a small catalog.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Identity: config.IdentityConfig{Name: "Sharma General Store"},
	}

	s, err := store.Open(filepath.Join(t.TempDir(), "kirana.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	seed := []domain.CatalogItem{
		{Name: "Sugar", Aliases: []string{"chini", "cheeni", "चीनी"}, Category: "staples", Unit: domain.UnitKg, Price: decimal.RequireFromString("42.00"), GSTRate: 5, Stock: 40},
		{Name: "Atta", Aliases: []string{"aata", "आटा"}, Category: "staples", Unit: domain.UnitKg, Price: decimal.RequireFromString("45.00"), GSTRate: 12, Stock: 50, Preferred: true},
		{Name: "Lux Soap", Brand: "Lux", Category: "personal-care", Unit: domain.UnitPiece, Price: decimal.RequireFromString("35.00"), GSTRate: 18, Stock: 20},
		{Name: "Parle-G Biscuit", Aliases: []string{"parle g"}, Brand: "Parle", Category: "snacks", Unit: domain.UnitPacket, Price: decimal.RequireFromString("10.00"), GSTRate: 18, Stock: 0},
		{Name: "Britannia Biscuit", Brand: "Britannia", Category: "snacks", Unit: domain.UnitPacket, Price: decimal.RequireFromString("12.00"), GSTRate: 18, Stock: 15},
	}
	ids := make(map[string]int64, len(seed))
	for _, item := range seed {
		id, err := s.AddItem(context.Background(), item)
		if err != nil {
			t.Fatalf("AddItem(%s) error = %v", item.Name, err)
		}
		ids[item.Name] = id
	}

	service := usecase.NewOrderService(cache.NewMemoryCache(), usecase.OrderServiceConfig{
		CacheTTL: time.Minute,
	})
	handler := NewHandler(s, s, service, cfg.Identity.Name)

	return &testServer{
		router: SetupRouter(cfg, handler),
		store:  s,
		ids:    ids,
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path, payload string) *httptest.ResponseRecorder {
	t.Helper()

	var body *strings.Reader
	if payload == "" {
		body = strings.NewReader("")
	} else {
		body = strings.NewReader(payload)
	}
	req, _ := http.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v\nbody: %s", err, w.Body.String())
	}
	return response
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		ts := setupTestServer(t)

		w := doJSON(t, ts.router, "GET", "/health", "")
		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		response := decodeBody(t, w)
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "kirana-store-automation" {
			t.Errorf("service = %v, want kirana-store-automation", response["service"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		ts := setupTestServer(t)

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			w := doJSON(t, ts.router, method, "/health", "")
			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestWhatsAppWebhook tests the end-to-end webhook flow: resolve, persist,
// decrement stock, reply.
func TestWhatsAppWebhook(t *testing.T) {
	t.Run("confirms a clean order", func(t *testing.T) {
		ts := setupTestServer(t)

		payload := `{"message":"2kg chini","customer_name":"Ramesh","customer_phone":"+919876543210"}`
		w := doJSON(t, ts.router, "POST", "/webhook/whatsapp", payload)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
		}

		response := decodeBody(t, w)
		reply, _ := response["reply_text"].(string)
		if !strings.Contains(reply, "Thank you Ramesh!") {
			t.Errorf("reply = %q, want greeting with customer name", reply)
		}
		if !strings.Contains(reply, "Sugar") || !strings.Contains(reply, "₹84.00") {
			t.Errorf("reply = %q, want billed Sugar line with amount", reply)
		}
		if !strings.Contains(reply, "Total: ₹88.20") {
			t.Errorf("reply = %q, want grand total ₹88.20", reply)
		}
		if !strings.Contains(reply, "Sharma General Store") {
			t.Errorf("reply = %q, want store name", reply)
		}

		// Order persisted and retrievable
		orderID, _ := response["order_id"].(string)
		if orderID == "" {
			t.Fatal("order_id missing from response")
		}
		got := doJSON(t, ts.router, "GET", "/api/v1/orders/"+orderID, "")
		if got.Code != http.StatusOK {
			t.Errorf("GET order Status = %d, want %d", got.Code, http.StatusOK)
		}
		order := decodeBody(t, got)
		if order["text"] != "2kg chini" {
			t.Errorf("stored order text = %v, want 2kg chini", order["text"])
		}

		// Stock decremented by the billed quantity
		item, err := ts.store.ItemByID(context.Background(), ts.ids["Sugar"])
		if err != nil {
			t.Fatalf("ItemByID() error = %v", err)
		}
		if item.Stock != 38 {
			t.Errorf("Sugar stock = %v, want 38 after order", item.Stock)
		}
	})

	t.Run("reports out of stock with substitutes", func(t *testing.T) {
		ts := setupTestServer(t)

		payload := `{"message":"2 packet parle g","customer_name":"Sita"}`
		w := doJSON(t, ts.router, "POST", "/webhook/whatsapp", payload)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		reply, _ := decodeBody(t, w)["reply_text"].(string)
		if !strings.Contains(reply, "out of stock") {
			t.Errorf("reply = %q, want out of stock notice", reply)
		}
		if !strings.Contains(reply, "Britannia Biscuit") {
			t.Errorf("reply = %q, want substitute suggestion", reply)
		}

		// Nothing was billed, so no stock moved
		item, err := ts.store.ItemByID(context.Background(), ts.ids["Britannia Biscuit"])
		if err != nil {
			t.Fatalf("ItemByID() error = %v", err)
		}
		if item.Stock != 15 {
			t.Errorf("Britannia stock = %v, want 15 untouched", item.Stock)
		}
	})

	t.Run("rejects missing message", func(t *testing.T) {
		ts := setupTestServer(t)

		w := doJSON(t, ts.router, "POST", "/webhook/whatsapp", `{"customer_name":"Ramesh"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestResolveEndpoints tests the stateless resolution endpoints
func TestResolveEndpoints(t *testing.T) {
	t.Run("orders/resolve returns a priced result without persisting", func(t *testing.T) {
		ts := setupTestServer(t)

		w := doJSON(t, ts.router, "POST", "/api/v1/orders/resolve", `{"text":"1kg atta"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var result domain.OrderResolutionResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal result: %v", err)
		}
		if result.Status != domain.OrderAllMatched {
			t.Errorf("status = %s, want %s", result.Status, domain.OrderAllMatched)
		}
		if !result.Bill.GrandTotal.Equal(decimal.RequireFromString("50.40")) {
			t.Errorf("grand total = %s, want 50.40", result.Bill.GrandTotal)
		}

		// No stock moved for previews
		item, err := ts.store.ItemByID(context.Background(), ts.ids["Atta"])
		if err != nil {
			t.Fatalf("ItemByID() error = %v", err)
		}
		if item.Stock != 50 {
			t.Errorf("Atta stock = %v, want 50 after preview", item.Stock)
		}
	})

	t.Run("ledger/resolve joins OCR lines", func(t *testing.T) {
		ts := setupTestServer(t)

		w := doJSON(t, ts.router, "POST", "/api/v1/ledger/resolve", `{"lines":["2kg chini","1 lux soap"]}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var result domain.OrderResolutionResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal result: %v", err)
		}
		if len(result.Lines) != 2 {
			t.Fatalf("lines = %d, want 2", len(result.Lines))
		}
		if !result.Bill.Subtotal.Equal(decimal.RequireFromString("119.00")) {
			t.Errorf("subtotal = %s, want 119.00", result.Bill.Subtotal)
		}
	})

	t.Run("resolve requires text", func(t *testing.T) {
		ts := setupTestServer(t)

		w := doJSON(t, ts.router, "POST", "/api/v1/orders/resolve", `{}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("unknown order returns 404", func(t *testing.T) {
		ts := setupTestServer(t)

		w := doJSON(t, ts.router, "GET", "/api/v1/orders/no-such-order", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

// TestItemEndpoints tests catalog management over HTTP
func TestItemEndpoints(t *testing.T) {
	t.Run("add get list search delete", func(t *testing.T) {
		ts := setupTestServer(t)

		payload := `{"name":"Tata Salt","aliases":["namak"],"category":"staples","unit":"kg","price":"28.00","gstRate":5,"stock":30}`
		w := doJSON(t, ts.router, "POST", "/api/v1/items", payload)
		if w.Code != http.StatusCreated {
			t.Fatalf("POST Status = %d, want %d\nbody: %s", w.Code, http.StatusCreated, w.Body.String())
		}
		created := decodeBody(t, w)
		id := created["id"].(float64)

		w = doJSON(t, ts.router, "GET", itemPath(int64(id)), "")
		if w.Code != http.StatusOK {
			t.Errorf("GET Status = %d, want %d", w.Code, http.StatusOK)
		}

		w = doJSON(t, ts.router, "GET", "/api/v1/items?category=staples", "")
		if w.Code != http.StatusOK {
			t.Fatalf("LIST Status = %d, want %d", w.Code, http.StatusOK)
		}
		list := decodeBody(t, w)
		if list["count"].(float64) != 3 {
			t.Errorf("staples count = %v, want 3", list["count"])
		}

		w = doJSON(t, ts.router, "GET", "/api/v1/items/search?q=namak", "")
		if w.Code != http.StatusOK {
			t.Fatalf("SEARCH Status = %d, want %d", w.Code, http.StatusOK)
		}
		found := decodeBody(t, w)
		if found["count"].(float64) != 1 {
			t.Errorf("search count = %v, want 1", found["count"])
		}

		w = doJSON(t, ts.router, "DELETE", itemPath(int64(id)), "")
		if w.Code != http.StatusNoContent {
			t.Errorf("DELETE Status = %d, want %d", w.Code, http.StatusNoContent)
		}

		w = doJSON(t, ts.router, "GET", itemPath(int64(id)), "")
		if w.Code != http.StatusNotFound {
			t.Errorf("GET after delete Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("duplicate item conflicts", func(t *testing.T) {
		ts := setupTestServer(t)

		payload := `{"name":"sugar","unit":"kg","price":"40.00","gstRate":5}`
		w := doJSON(t, ts.router, "POST", "/api/v1/items", payload)
		if w.Code != http.StatusConflict {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusConflict)
		}
	})

	t.Run("stock adjustment and history", func(t *testing.T) {
		ts := setupTestServer(t)
		id := itemPath(ts.ids["Sugar"])

		w := doJSON(t, ts.router, "PUT", id+"/stock", `{"delta":-5,"reason":"damage"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
		}
		item := decodeBody(t, w)
		if item["stock"].(float64) != 35 {
			t.Errorf("stock = %v, want 35", item["stock"])
		}

		w = doJSON(t, ts.router, "PUT", id+"/stock", `{"delta":-1000,"reason":"order"}`)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("overdraw Status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}

		w = doJSON(t, ts.router, "GET", id+"/history", "")
		if w.Code != http.StatusOK {
			t.Fatalf("history Status = %d, want %d", w.Code, http.StatusOK)
		}
		history := decodeBody(t, w)
		if history["count"].(float64) != 1 {
			t.Errorf("history count = %v, want 1", history["count"])
		}
	})

	t.Run("invalid item id", func(t *testing.T) {
		ts := setupTestServer(t)

		w := doJSON(t, ts.router, "GET", "/api/v1/items/abc", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestImportItems tests bulk catalog import
func TestImportItems(t *testing.T) {
	t.Run("imports csv and skips duplicates", func(t *testing.T) {
		ts := setupTestServer(t)

		csvData := "name,aliases,unit,price,gst,stock\nSugar,chini,kg,42.00,5,40\nMoong Dal,dal,kg,120.00,5,25\n"

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "catalog.csv")
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := fw.Write([]byte(csvData)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		_ = mw.Close()

		req, _ := http.NewRequest("POST", "/api/v1/items/import", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
		}
		response := decodeBody(t, w)
		if response["imported"].(float64) != 1 {
			t.Errorf("imported = %v, want 1", response["imported"])
		}

		items, err := ts.store.SearchItems(context.Background(), "moong")
		if err != nil {
			t.Fatalf("SearchItems() error = %v", err)
		}
		if len(items) != 1 {
			t.Errorf("Moong Dal not imported")
		}
	})

	t.Run("requires a file", func(t *testing.T) {
		ts := setupTestServer(t)

		w := doJSON(t, ts.router, "POST", "/api/v1/items/import", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("allowed origin gets CORS headers", func(t *testing.T) {
		ts := setupTestServer(t)

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
		}
	})

	t.Run("preflight returns no content", func(t *testing.T) {
		ts := setupTestServer(t)

		req, _ := http.NewRequest("OPTIONS", "/api/v1/orders/resolve", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNoContent)
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		ts := setupTestServer(t)

		ts.router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		w := doJSON(t, ts.router, "GET", "/panic", "")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestRequestID tests that every response carries a request id
func TestRequestID(t *testing.T) {
	t.Run("generates an id when absent", func(t *testing.T) {
		ts := setupTestServer(t)

		w := doJSON(t, ts.router, "GET", "/health", "")
		if w.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID header missing")
		}
	})

	t.Run("echoes a provided id", func(t *testing.T) {
		ts := setupTestServer(t)

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("X-Request-ID", "test-rid-42")
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)

		if got := w.Header().Get("X-Request-ID"); got != "test-rid-42" {
			t.Errorf("X-Request-ID = %q, want test-rid-42", got)
		}
	})
}

func itemPath(id int64) string {
	return "/api/v1/items/" + strconv.FormatInt(id, 10)
}
