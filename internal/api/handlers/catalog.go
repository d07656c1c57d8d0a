package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sumandas0/farmstore/internal/api/middleware"
	"github.com/sumandas0/farmstore/internal/catalog"
	"github.com/sumandas0/farmstore/internal/core"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/pkg/utils"
)

type CatalogHandler struct {
	engine *core.Engine
	parser *ListingParser
}

func NewCatalogHandler(engine *core.Engine, parser *ListingParser) *CatalogHandler {
	return &CatalogHandler{
		engine: engine,
		parser: parser,
	}
}

type SuggestResponse struct {
	Query       string   `json:"query" example:"유기"`
	Suggestions []string `json:"suggestions"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// List returns the listing handler for one collection.
//
// @Summary List a collection
// @Description Filtered, sorted and paginated listing with facet counts. Unknown or malformed parameters are ignored.
// @Tags catalog
// @Produce json
// @Param q query string false "Search term"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size"
// @Param sort query string false "Preset name, field or field:asc|desc"
// @Success 200 {object} catalog.ResultPage
// @Failure 500 {object} middleware.ErrorResponse
// @Router /api/v1/products [get]
// @Router /api/v1/orders [get]
// @Router /api/v1/customers [get]
// @Router /api/v1/news [get]
func (h *CatalogHandler) List(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		def, ok := models.LookupCollection(collection)
		if !ok {
			middleware.SendNotFoundError(w, r, "collection "+collection)
			return
		}

		page, err := h.engine.Query(r.Context(), collection, h.parser.Parse(def, r.URL.Query()))
		if err != nil {
			middleware.SendAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, page)
	}
}

// Search godoc
// @Summary Search products
// @Description Substring search over product name, tags and description
// @Tags catalog
// @Produce json
// @Param q query string true "Search term"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size"
// @Success 200 {object} catalog.ResultPage
// @Router /api/v1/search [get]
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	def, _ := models.LookupCollection(models.CollectionProducts)

	term := h.parser.term(values.Get("q"))
	page := h.parser.page(values.Get("page"))
	pageSize := h.parser.pageSize(values.Get("page_size"), def.DefaultPageSize)

	result, err := h.engine.Search(r.Context(), term, page, pageSize)
	if err != nil {
		middleware.SendAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Suggest godoc
// @Summary Autocomplete suggestions
// @Description Up to six product names and tags containing the term
// @Tags catalog
// @Produce json
// @Param q query string true "Partial term"
// @Success 200 {object} SuggestResponse
// @Router /api/v1/search/suggest [get]
func (h *CatalogHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	term := h.parser.term(r.URL.Query().Get("q"))

	suggestions, err := h.engine.Suggest(r.Context(), term)
	if err != nil {
		middleware.SendAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SuggestResponse{Query: term, Suggestions: suggestions})
}

// Query godoc
// @Summary Run a raw query
// @Description Executes a QuerySpec as given. Structurally invalid specs are rejected rather than repaired.
// @Tags catalog
// @Accept json
// @Produce json
// @Param collection path string true "Collection" Enums(products, orders, customers, news)
// @Param spec body catalog.QuerySpec true "Query"
// @Success 200 {object} catalog.ResultPage
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/query/{collection} [post]
func (h *CatalogHandler) Query(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	var spec catalog.QuerySpec
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		sendBadBody(w, r, err)
		return
	}

	page, err := h.engine.Query(r.Context(), collection, spec)
	if err != nil {
		middleware.SendAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func sendBadBody(w http.ResponseWriter, r *http.Request, err error) {
	middleware.SendError(w, r,
		utils.NewAppError(utils.CodeInvalidInput, "invalid request body", err).WithDetail("error", err.Error()),
		http.StatusBadRequest)
}
