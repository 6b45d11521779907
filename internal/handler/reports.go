package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kapehan-pos/api/internal/database"
)

// ReportStore defines the database methods needed by report handlers.
type ReportStore interface {
	SalesSummary(ctx context.Context, arg database.SalesSummaryParams) (database.SalesSummaryRow, error)
	UnsoldItems(ctx context.Context, arg database.UnsoldItemsParams) ([]database.MenuItem, error)
	ListAuditLogs(ctx context.Context, arg database.ListAuditLogsParams) ([]database.AuditLog, error)
}

// ReportHandler handles reporting endpoints.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// Expected to be mounted behind RequireRole(OWNER, ADMIN).
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sales-summary", h.SalesSummary)
	r.Get("/unsold-items", h.UnsoldItems)
	r.Get("/audit-logs", h.AuditLogs)
}

type salesSummaryResponse struct {
	OrderCount    int64  `json:"order_count"`
	GrossSales    string `json:"gross_sales"`
	DiscountTotal string `json:"discount_total"`
	NetSales      string `json:"net_sales"`
}

type auditLogResponse struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id"`
	Action    string    `json:"action"`
	Details   *string   `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// parseDateRange reads optional RFC 3339 start_date / end_date query params.
func parseDateRange(r *http.Request) (start, end pgtype.Timestamptz, ok bool) {
	if v := r.URL.Query().Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return start, end, false
		}
		start = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return start, end, false
		}
		end = pgtype.Timestamptz{Time: t, Valid: true}
	}
	return start, end, true
}

// SalesSummary handles GET /reports/sales-summary.
func (h *ReportHandler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date range"})
		return
	}

	row, err := h.store.SalesSummary(r.Context(), database.SalesSummaryParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: sales summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, salesSummaryResponse{
		OrderCount:    row.OrderCount,
		GrossSales:    numericString(row.GrossSales),
		DiscountTotal: numericString(row.DiscountTotal),
		NetSales:      numericString(row.NetSales),
	})
}

// UnsoldItems handles GET /reports/unsold-items: menu items with no sales
// in the window.
func (h *ReportHandler) UnsoldItems(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date range"})
		return
	}

	items, err := h.store.UnsoldItems(r.Context(), database.UnsoldItemsParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: unsold items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// AuditLogs handles GET /reports/audit-logs.
func (h *ReportHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	params := database.ListAuditLogsParams{Limit: 50}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.ParseInt(v, 10, 32)
		if err != nil || limit < 1 || limit > 200 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		params.Limit = int32(limit)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.ParseInt(v, 10, 32)
		if err != nil || offset < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
			return
		}
		params.Offset = int32(offset)
	}

	logs, err := h.store.ListAuditLogs(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list audit logs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]auditLogResponse, len(logs))
	for i, l := range logs {
		entry := auditLogResponse{
			ID:        l.ID.String(),
			Action:    l.Action,
			CreatedAt: l.CreatedAt,
		}
		if l.UserID.Valid {
			id := uuid.UUID(l.UserID.Bytes).String()
			entry.UserID = &id
		}
		if l.Details.Valid {
			entry.Details = &l.Details.String
		}
		resp[i] = entry
	}
	writeJSON(w, http.StatusOK, resp)
}
