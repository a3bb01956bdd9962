package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/repository"
	"gearhire-backend/internal/service"
)

// ListProducts serves the public catalog. Prices in minPrice and maxPrice
// are cents and filter on the lowest active daily rate.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ProductFilter{
		Search:    strings.TrimSpace(q.Get("search")),
		SortBy:    q.Get("sortBy"),
		SortOrder: strings.ToLower(q.Get("sortOrder")),
		Condition: domain.Condition(q.Get("condition")),
	}

	var ok bool
	if filter.Page, ok = queryInt(r, "page"); !ok {
		h.writeError(w, r, badRequest("page", "must be an integer"))
		return
	}
	if filter.Limit, ok = queryInt(r, "limit"); !ok {
		h.writeError(w, r, badRequest("limit", "must be an integer"))
		return
	}
	category, ok := queryInt(r, "category")
	if !ok || category < 0 {
		h.writeError(w, r, badRequest("category", "must be a category id"))
		return
	}
	filter.CategoryID = int32(category)

	for name, dst := range map[string]*int64{"minPrice": &filter.MinPriceCents, "maxPrice": &filter.MaxPriceCents} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, r, badRequest(name, "must be an amount in cents"))
			return
		}
		*dst = v
	}

	if user := UserFromContext(r.Context()); user != nil && user.Role.IsStaff() {
		filter.IncludeHidden = q.Get("includeHidden") == "true"
	}

	products, total, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	page, limit := service.NormalizePage(filter.Page, filter.Limit)
	writePage(w, products, page, limit, total)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user := UserFromContext(r.Context())
	p, err := h.catalog.GetProduct(r.Context(), id, user != nil && user.Role.IsStaff())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// unitRequest defaults isAvailable to true when the client omits it.
type unitRequest struct {
	domain.InventoryUnit
	IsAvailable *bool `json:"isAvailable"`
}

type productRequest struct {
	domain.Product
	InventoryUnits []unitRequest `json:"inventoryUnits"`
}

func (req *productRequest) toDomain() domain.Product {
	p := req.Product
	p.ID = 0
	p.InventoryUnits = make([]domain.InventoryUnit, 0, len(req.InventoryUnits))
	for _, u := range req.InventoryUnits {
		unit := u.InventoryUnit
		unit.IsAvailable = u.IsAvailable == nil || *u.IsAvailable
		p.InventoryUnits = append(p.InventoryUnits, unit)
	}
	return p
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req := productRequest{Product: domain.Product{IsActive: true}}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, badRequest("body", "malformed JSON"))
		return
	}
	p := req.toDomain()
	if err := h.catalog.CreateProduct(r.Context(), &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

// CheckAvailability takes RFC 3339 start and end query parameters.
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		h.writeError(w, r, badRequest("start", "must be an RFC 3339 timestamp"))
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		h.writeError(w, r, badRequest("end", "must be an RFC 3339 timestamp"))
		return
	}

	customerType := ""
	if user := UserFromContext(r.Context()); user != nil {
		customerType = user.CustomerType
	}
	a, err := h.catalog.CheckAvailability(r.Context(), id, start.UTC(), end.UTC(), customerType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, a)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, categories)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	c := domain.Category{IsActive: true}
	if err := decodeJSON(r, &c); err != nil {
		h.writeError(w, r, badRequest("body", "malformed JSON"))
		return
	}
	c.ID = 0
	if err := h.catalog.CreateCategory(r.Context(), &c); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}
