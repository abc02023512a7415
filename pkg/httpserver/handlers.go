package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/perp-arb-monitor/internal/arbitrage"
	"github.com/mselser95/perp-arb-monitor/internal/history"
	"github.com/mselser95/perp-arb-monitor/internal/state"
	"github.com/mselser95/perp-arb-monitor/pkg/cache"
)

const (
	historyCacheTTL     = 30 * time.Second
	historyDefaultLimit = 100
	historyMaxLimit     = 1000
	historyDefaultSince = 24 * time.Hour
)

// apiHandler serves the read-only monitoring API.
type apiHandler struct {
	logger        *zap.Logger
	finder        *arbitrage.Finder
	store         *state.Store
	statsFunc     func() interface{}
	historyReader *history.Reader
	historyCache  cache.Cache
}

func newAPIHandler(cfg *Config) *apiHandler {
	return &apiHandler{
		logger:        cfg.Logger,
		finder:        cfg.Finder,
		store:         cfg.Store,
		statsFunc:     cfg.StatsFunc,
		historyReader: cfg.HistoryReader,
		historyCache:  cfg.HistoryCache,
	}
}

// OpportunityResponse is the wire form of one live opportunity. Prices are
// strings to keep decimal precision.
type OpportunityResponse struct {
	ID                       string    `json:"id"`
	Symbol                   string    `json:"symbol"`
	VenueBuy                 string    `json:"venue_buy"`
	VenueSell                string    `json:"venue_sell"`
	PriceBuy                 string    `json:"price_buy"`
	PriceSell                string    `json:"price_sell"`
	SizeBuy                  string    `json:"size_buy"`
	SizeSell                 string    `json:"size_sell"`
	SpreadPct                float64   `json:"spread_pct"`
	HasFunding               bool      `json:"has_funding"`
	FundingRateDiff8h        string    `json:"funding_rate_diff_8h,omitempty"`
	FundingRateDiffAnnualPct float64   `json:"funding_rate_diff_annual_pct,omitempty"`
	FirstSeen                time.Time `json:"first_seen"`
	LastSeen                 time.Time `json:"last_seen"`
}

// QuoteResponse is the wire form of one venue's top of book.
type QuoteResponse struct {
	BidPrice string    `json:"bid_price"`
	BidSize  string    `json:"bid_size"`
	AskPrice string    `json:"ask_price"`
	AskSize  string    `json:"ask_size"`
	WallTime time.Time `json:"wall_time"`
}

// HistoryRow is the wire form of one sampled history record.
type HistoryRow struct {
	Timestamp                time.Time `json:"timestamp"`
	Symbol                   string    `json:"symbol"`
	ExchangeBuy              string    `json:"exchange_buy"`
	ExchangeSell             string    `json:"exchange_sell"`
	PriceBuy                 string    `json:"price_buy"`
	PriceSell                string    `json:"price_sell"`
	SpreadPct                float64   `json:"spread_pct"`
	FundingRateDiff8h        string    `json:"funding_rate_diff_8h"`
	FundingRateDiffAnnualPct float64   `json:"funding_rate_diff_annual_pct"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleOpportunities handles GET /api/opportunities requests.
func (h *apiHandler) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	active := h.finder.Active()

	out := make([]OpportunityResponse, 0, len(active))
	for i := range active {
		opp := &active[i]
		resp := OpportunityResponse{
			ID:         opp.ID,
			Symbol:     opp.Symbol,
			VenueBuy:   opp.VenueBuy,
			VenueSell:  opp.VenueSell,
			PriceBuy:   opp.PriceBuy.String(),
			PriceSell:  opp.PriceSell.String(),
			SizeBuy:    opp.SizeBuy.String(),
			SizeSell:   opp.SizeSell.String(),
			SpreadPct:  opp.SpreadPct,
			HasFunding: opp.HasFunding,
			FirstSeen:  opp.FirstSeen,
			LastSeen:   opp.LastSeen,
		}
		if opp.HasFunding {
			resp.FundingRateDiff8h = opp.FundingRateDiff8h.String()
			resp.FundingRateDiffAnnualPct = opp.FundingRateDiffAnnualPct
		}
		out = append(out, resp)
	}

	h.writeJSON(w, http.StatusOK, out)
}

// HandleQuotes handles GET /api/quotes requests, returning all fresh quotes
// keyed by symbol then venue.
func (h *apiHandler) HandleQuotes(w http.ResponseWriter, r *http.Request) {
	snapshot := h.store.Snapshot()

	out := make(map[string]map[string]QuoteResponse, len(snapshot))
	for symbol, byVenue := range snapshot {
		venues := make(map[string]QuoteResponse, len(byVenue))
		for venueName, q := range byVenue {
			venues[venueName] = QuoteResponse{
				BidPrice: q.BidPrice.String(),
				BidSize:  q.BidSize.String(),
				AskPrice: q.AskPrice.String(),
				AskSize:  q.AskSize.String(),
				WallTime: q.WallTime,
			}
		}
		out[symbol] = venues
	}

	h.writeJSON(w, http.StatusOK, out)
}

// HandleStats handles GET /api/stats requests.
func (h *apiHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.statsFunc())
}

// HandleHistory handles GET /api/history requests. Results are cached
// briefly so dashboards polling the endpoint do not hammer PostgreSQL.
//
// Query parameters: symbol (optional), hours (lookback, default 24),
// limit (default 100, max 1000).
func (h *apiHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	hours := 0
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, "invalid hours parameter", http.StatusBadRequest)
			return
		}
		hours = parsed
	}
	since := historyDefaultSince
	if hours > 0 {
		since = time.Duration(hours) * time.Hour
	}

	limit := historyDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > historyMaxLimit {
		limit = historyMaxLimit
	}

	cacheKey := fmt.Sprintf("history:%s:%d:%d", symbol, int(since.Hours()), limit)
	if h.historyCache != nil {
		if cached, found := h.historyCache.Get(cacheKey); found {
			if rows, ok := cached.([]HistoryRow); ok {
				h.writeJSON(w, http.StatusOK, rows)
				return
			}
		}
	}

	var records []history.Record
	var err error
	if symbol != "" {
		records, err = h.historyReader.BySymbol(r.Context(), symbol, time.Now().Add(-since), limit)
	} else {
		records, err = h.historyReader.Recent(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("history-query-failed", zap.Error(err))
		h.writeError(w, "history query failed", http.StatusInternalServerError)
		return
	}

	rows := make([]HistoryRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, HistoryRow{
			Timestamp:                rec.Timestamp,
			Symbol:                   rec.Symbol,
			ExchangeBuy:              rec.ExchangeBuy,
			ExchangeSell:             rec.ExchangeSell,
			PriceBuy:                 rec.PriceBuy.String(),
			PriceSell:                rec.PriceSell.String(),
			SpreadPct:                rec.SpreadPct,
			FundingRateDiff8h:        rec.FundingRateDiff8h.String(),
			FundingRateDiffAnnualPct: rec.FundingRateDiffAnnualPct,
		})
	}

	if h.historyCache != nil {
		h.historyCache.Set(cacheKey, rows, historyCacheTTL)
	}

	h.writeJSON(w, http.StatusOK, rows)
}

func (h *apiHandler) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *apiHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
