package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/repository"
)

// CommandSubmitter accepts client commands for asynchronous processing.
type CommandSubmitter interface {
	Submit(ctx context.Context, cmd entity.Body) error
}

// Handler handles HTTP requests for the BFF.
type Handler struct {
	commands CommandSubmitter
	views    repository.DeliveryViewRepository
	gatherer prometheus.Gatherer
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(commands CommandSubmitter, views repository.DeliveryViewRepository, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &Handler{
		commands: commands,
		views:    views,
		gatherer: gatherer,
		validate: v,
		logger:   logger,
	}
}

// Routes returns the BFF router.
func (h *Handler) Routes() http.Handler {
	r := newRouter(h.gatherer)
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.handleCreateOrder)
		r.Post("/{id}/cancel", h.handleCancelOrder)
		r.Post("/{id}/tip", h.handleAddTip)
	})
	r.Route("/deliveries", func(r chi.Router) {
		r.Get("/", h.handleListDeliveries)
		r.Get("/{id}", h.handleGetDelivery)
		r.Post("/{id}", h.handleUpdateDelivery)
		r.Post("/{id}/delivery-man", h.handleDeliveryMan)
	})
	return r
}

// OpsRoutes serves only the health and metrics endpoints, for services
// without a client API.
func OpsRoutes(gatherer prometheus.Gatherer) http.Handler {
	return newRouter(gatherer)
}

func newRouter(gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

type CreateOrderRequest struct {
	OrderID        string          `json:"order_id"`
	CustomerID     string          `json:"customer_id" validate:"required"`
	RestaurantID   string          `json:"restaurant_id" validate:"required"`
	Items          []entity.Item   `json:"items" validate:"required,min=1,dive"`
	Address        string          `json:"address" validate:"required"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge" validate:"gte=0"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type AddTipRequest struct {
	Tip decimal.Decimal `json:"tip" validate:"gte=0"`
}

type UpdateDeliveryRequest struct {
	Status string `json:"status" validate:"required,oneof=prepareFood foodReady pickUpFood deliverFood"`
}

type DeliveryManRequest struct {
	DeliveryManID string `json:"delivery_man_id"`
}

type acceptedResponse struct {
	OrderID string `json:"order_id"`
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.OrderID == "" {
		req.OrderID = uuid.NewString()
	}

	h.submit(w, r, entity.CreateOrder{
		OrderID:        req.OrderID,
		CustomerID:     req.CustomerID,
		RestaurantID:   req.RestaurantID,
		Items:          req.Items,
		Address:        req.Address,
		DeliveryCharge: req.DeliveryCharge,
	})
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.submit(w, r, entity.CancelOrder{OrderID: chi.URLParam(r, "id"), Reason: req.Reason})
}

func (h *Handler) handleAddTip(w http.ResponseWriter, r *http.Request) {
	var req AddTipRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.submit(w, r, entity.AddTip{OrderID: chi.URLParam(r, "id"), Tip: req.Tip})
}

func (h *Handler) handleUpdateDelivery(w http.ResponseWriter, r *http.Request) {
	var req UpdateDeliveryRequest
	if !h.decode(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	var cmd entity.Body
	switch req.Status {
	case "prepareFood":
		cmd = entity.PrepareFood{OrderID: id}
	case "foodReady":
		cmd = entity.FoodReady{OrderID: id}
	case "pickUpFood":
		cmd = entity.PickUpFood{OrderID: id}
	default:
		cmd = entity.DeliverFood{OrderID: id}
	}
	h.submit(w, r, cmd)
}

// handleDeliveryMan assigns the given delivery man, or unassigns the current
// one when the id is empty.
func (h *Handler) handleDeliveryMan(w http.ResponseWriter, r *http.Request) {
	var req DeliveryManRequest
	if !h.decode(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if req.DeliveryManID == "" {
		h.submit(w, r, entity.UnAssignDeliveryMan{OrderID: id})
		return
	}
	h.submit(w, r, entity.AssignDeliveryMan{OrderID: id, DeliveryManID: req.DeliveryManID})
}

func (h *Handler) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	views, err := h.views.All(r.Context())
	if err != nil {
		h.logger.Error("Failed to list deliveries", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if views == nil {
		views = []entity.DeliveryView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleGetDelivery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, found, err := h.views.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get delivery", "order_id", id, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "delivery not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// decode reads and validates the request body. An empty body is an empty
// request.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return false
		}
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			http.Error(w, verrs.Error(), http.StatusBadRequest)
			return false
		}
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, cmd entity.Body) {
	if err := h.commands.Submit(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to submit command", "order_id", cmd.EntityID(), "type", cmd.MessageType(), "err", err)
		http.Error(w, "failed to accept request", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{OrderID: cmd.EntityID()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
