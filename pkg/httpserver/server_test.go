package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/mselser95/perp-arb-monitor/internal/arbitrage"
	"github.com/mselser95/perp-arb-monitor/internal/history"
	"github.com/mselser95/perp-arb-monitor/internal/state"
	"github.com/mselser95/perp-arb-monitor/pkg/healthprobe"
	"github.com/mselser95/perp-arb-monitor/pkg/types"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func minimalServer(t *testing.T) *Server {
	t.Helper()
	return New(&Config{
		Port:          "0",
		Logger:        zaptest.NewLogger(t),
		HealthChecker: healthprobe.New(),
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := minimalServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Health endpoint status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		setReady       bool
		expectedStatus int
	}{
		{
			name:           "ready_when_set",
			setReady:       true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not_ready_initially",
			setReady:       false,
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := healthprobe.New()
			hc.Register("venues")
			if tt.setReady {
				hc.SetReady("venues", true)
			}

			server := New(&Config{
				Port:          "0",
				Logger:        zaptest.NewLogger(t),
				HealthChecker: hc,
			})

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()

			server.server.Handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Ready endpoint status = %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := minimalServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Metrics endpoint status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.Len() == 0 {
		t.Error("Metrics endpoint returned empty body")
	}
}

func TestOpportunitiesEndpoint(t *testing.T) {
	finder := arbitrage.NewFinder(arbitrage.FinderConfig{
		MinSpreadPct: 0.01,
		Logger:       zaptest.NewLogger(t),
	})
	finder.Update([]arbitrage.Spread{{
		Symbol:    "BTC-USDC-PERP",
		VenueBuy:  "lighter",
		VenueSell: "extended",
		PriceBuy:  dec(t, "60010"),
		PriceSell: dec(t, "60050"),
		SizeBuy:   dec(t, "1.5"),
		SizeSell:  dec(t, "2.0"),
		SpreadPct: 0.0666,
	}}, nil)

	server := New(&Config{
		Port:          "0",
		Logger:        zaptest.NewLogger(t),
		HealthChecker: healthprobe.New(),
		Finder:        finder,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/opportunities", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Opportunities endpoint status = %d, want %d", w.Code, http.StatusOK)
	}

	var opps []OpportunityResponse
	err := json.NewDecoder(w.Body).Decode(&opps)
	if err != nil {
		t.Fatalf("Failed to decode opportunities: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}
	if opps[0].Symbol != "BTC-USDC-PERP" {
		t.Errorf("unexpected symbol %q", opps[0].Symbol)
	}
	if opps[0].PriceBuy != "60010" {
		t.Errorf("unexpected price_buy %q", opps[0].PriceBuy)
	}
	if opps[0].HasFunding {
		t.Error("expected no funding without tickers")
	}
}

func TestQuotesEndpoint(t *testing.T) {
	store := state.NewStore(30*time.Second, nil)
	store.ApplyQuote(types.Quote{
		Venue:    "lighter",
		Symbol:   "BTC-USDC-PERP",
		BidPrice: dec(t, "60000"),
		BidSize:  dec(t, "1.5"),
		AskPrice: dec(t, "60010"),
		AskSize:  dec(t, "2.0"),
		WallTime: time.Now(),
	})

	server := New(&Config{
		Port:          "0",
		Logger:        zaptest.NewLogger(t),
		HealthChecker: healthprobe.New(),
		Store:         store,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Quotes endpoint status = %d, want %d", w.Code, http.StatusOK)
	}

	var quotes map[string]map[string]QuoteResponse
	err := json.NewDecoder(w.Body).Decode(&quotes)
	if err != nil {
		t.Fatalf("Failed to decode quotes: %v", err)
	}
	q, ok := quotes["BTC-USDC-PERP"]["lighter"]
	if !ok {
		t.Fatalf("expected quote for BTC-USDC-PERP on lighter, got %v", quotes)
	}
	if q.BidPrice != "60000" {
		t.Errorf("unexpected bid price %q", q.BidPrice)
	}
}

func TestStatsEndpoint(t *testing.T) {
	server := New(&Config{
		Port:          "0",
		Logger:        zaptest.NewLogger(t),
		HealthChecker: healthprobe.New(),
		StatsFunc: func() interface{} {
			return map[string]int{"venues": 2}
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Stats endpoint status = %d, want %d", w.Code, http.StatusOK)
	}

	var stats map[string]int
	err := json.NewDecoder(w.Body).Decode(&stats)
	if err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats["venues"] != 2 {
		t.Errorf("unexpected stats %v", stats)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	defer db.Close()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"timestamp", "symbol", "exchange_buy", "exchange_sell",
		"price_buy", "price_sell", "size_buy", "size_sell",
		"spread_pct", "funding_rate_diff", "funding_rate_diff_annual",
	}).AddRow(ts, "BTC-USDC-PERP", "lighter", "extended",
		"60010", "60050", "1.5", "2", 0.0666, "0.0002", 21.9)

	mock.ExpectQuery("SELECT (.+) FROM spread_history_sampled").
		WithArgs(100).
		WillReturnRows(rows)

	server := New(&Config{
		Port:          "0",
		Logger:        zaptest.NewLogger(t),
		HealthChecker: healthprobe.New(),
		HistoryReader: history.NewReader(db),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("History endpoint status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var out []HistoryRow
	err = json.NewDecoder(w.Body).Decode(&out)
	if err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 row, got %d", len(out))
	}
	if out[0].Symbol != "BTC-USDC-PERP" {
		t.Errorf("unexpected symbol %q", out[0].Symbol)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestHistoryEndpoint_BadParams(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	defer db.Close()

	server := New(&Config{
		Port:          "0",
		Logger:        zaptest.NewLogger(t),
		HealthChecker: healthprobe.New(),
		HistoryReader: history.NewReader(db),
	})

	for _, target := range []string{"/api/history?limit=abc", "/api/history?hours=-1"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()

		server.server.Handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want %d", target, w.Code, http.StatusBadRequest)
		}

		var errResp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}
		if errResp.Error == "" {
			t.Error("Error response missing error message")
		}
	}
}

func TestAPIEndpoints_NotRegisteredWithoutSources(t *testing.T) {
	server := minimalServer(t)

	for _, target := range []string{"/api/opportunities", "/api/quotes", "/api/stats", "/api/history"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()

		server.server.Handler.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want %d", target, w.Code, http.StatusNotFound)
		}
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
	})

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("Start() returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}

func TestServer_Timeouts(t *testing.T) {
	server := minimalServer(t)

	if server.server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want %v", server.server.ReadTimeout, 15*time.Second)
	}
	if server.server.ReadHeaderTimeout != 10*time.Second {
		t.Errorf("ReadHeaderTimeout = %v, want %v", server.server.ReadHeaderTimeout, 10*time.Second)
	}
	if server.server.WriteTimeout != 15*time.Second {
		t.Errorf("WriteTimeout = %v, want %v", server.server.WriteTimeout, 15*time.Second)
	}
	if server.server.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want %v", server.server.IdleTimeout, 60*time.Second)
	}
}

func TestServer_RouteNotFound(t *testing.T) {
	server := minimalServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Non-existent route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
