package http

import (
	"net/http"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/service"
)

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in service.PlaceOrderInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, badRequest("body", "malformed JSON"))
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), UserFromContext(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, order)
}

func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := h.paging(w, r)
	if !ok {
		return
	}
	orders, total, err := h.orders.ListMyOrders(r.Context(), UserFromContext(r.Context()), page, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOrders(w, orders, page, limit, total)
}

// ListOrders lists every order for staff, optionally filtered by ?status.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := h.paging(w, r)
	if !ok {
		return
	}
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	orders, total, err := h.orders.ListOrders(r.Context(), status, page, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOrders(w, orders, page, limit, total)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.orders.GetOrder(r.Context(), UserFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, order)
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, badRequest("body", "malformed JSON"))
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), UserFromContext(r.Context()), id, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, order)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.orders.CancelOrder(r.Context(), UserFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, order)
}

func (h *Handler) paging(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	page, ok := queryInt(r, "page")
	if !ok {
		h.writeError(w, r, badRequest("page", "must be an integer"))
		return 0, 0, false
	}
	limit, ok := queryInt(r, "limit")
	if !ok {
		h.writeError(w, r, badRequest("limit", "must be an integer"))
		return 0, 0, false
	}
	page, limit = service.NormalizePage(page, limit)
	return page, limit, true
}

func writeOrders(w http.ResponseWriter, orders []domain.Order, page, limit, total int) {
	if orders == nil {
		orders = []domain.Order{}
	}
	writePage(w, orders, page, limit, total)
}
