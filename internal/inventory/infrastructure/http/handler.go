package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmehra2102/order-inventory-saga/internal/inventory/domain"
)

type Queries interface {
	ListStock(ctx context.Context) ([]domain.StockItem, error)
	GetStock(ctx context.Context, id uuid.UUID) (domain.StockItem, error)
	GetOutcome(ctx context.Context, orderID uuid.UUID) (domain.Outcome, error)
}

type Handler struct {
	log     *slog.Logger
	queries Queries
}

func NewHandler(log *slog.Logger, queries Queries) *Handler {
	return &Handler{log: log, queries: queries}
}

type stockItemResp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type outcomeResp struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Reason  string `json:"reason"`
}

type errorResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/items", h.listItems)
	r.Get("/items/{id}", h.getItem)
	r.Get("/reservations/{orderId}", h.getReservation)
	return r
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.queries.ListStock(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]stockItemResp, 0, len(items))
	for _, s := range items {
		out = append(out, toStockResp(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		// Non-UUID references never name a stock item.
		writeError(w, http.StatusNotFound, "not_found", domain.ErrItemNotFound.Error())
		return
	}
	item, err := h.queries.GetStock(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStockResp(item))
}

func (h *Handler) getReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "order id must be a UUID")
		return
	}
	o, err := h.queries.GetOutcome(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResp{OrderID: o.OrderID.String(), Status: string(o.Status), Reason: o.Reason})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func toStockResp(s domain.StockItem) stockItemResp {
	return stockItemResp{ID: s.ID.String(), Name: s.Name, Quantity: s.Quantity, UpdatedAt: s.UpdatedAt}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResp{Error: msg, Code: code})
}
