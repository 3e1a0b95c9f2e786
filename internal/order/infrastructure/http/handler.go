package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-inventory-saga/internal/order/application"
	"github.com/dmehra2102/order-inventory-saga/internal/order/domain"
	"github.com/dmehra2102/order-inventory-saga/pkg/tracing"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

type orderItemDTO struct {
	ItemRef  string `json:"itemRef"`
	Quantity int    `json:"quantity"`
}

type createOrderReq struct {
	CustomerID int64          `json:"customerId"`
	Items      []orderItemDTO `json:"items"`
}

type orderResp struct {
	ID         string         `json:"id"`
	CustomerID int64          `json:"customerId"`
	Items      []orderItemDTO `json:"items"`
	Status     string         `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type errorResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
	return r
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := h.tracer.Start(ctx, "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid body")
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.OrderItem{ItemRef: it.ItemRef, Quantity: it.Quantity})
	}

	o, err := h.service.CreateOrder(ctx, application.CreateOrderInput{
		CustomerID:  req.CustomerID,
		Items:       items,
		Traceparent: tracing.Traceparent(ctx),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.fail(w, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID.String()))

	writeJSON(w, http.StatusCreated, toResp(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, toResp(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	o, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(o))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation_failed", verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "order id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func toResp(o domain.Order) orderResp {
	items := make([]orderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDTO{ItemRef: it.ItemRef, Quantity: it.Quantity})
	}
	return orderResp{
		ID:         o.ID.String(),
		CustomerID: o.CustomerID,
		Items:      items,
		Status:     string(o.Status),
		Reason:     o.Reason,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResp{Error: msg, Code: code})
}
