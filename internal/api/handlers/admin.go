package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sumandas0/farmstore/internal/api/middleware"
	"github.com/sumandas0/farmstore/internal/core"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/security"
	"github.com/sumandas0/farmstore/pkg/utils"
)

// AdminHandler serves document maintenance and back-office statistics.
type AdminHandler struct {
	engine    *core.Engine
	sanitizer *security.InputSanitizer
}

func NewAdminHandler(engine *core.Engine, sanitizer *security.InputSanitizer) *AdminHandler {
	return &AdminHandler{
		engine:    engine,
		sanitizer: sanitizer,
	}
}

type DocumentRequest struct {
	Fields map[string]any `json:"fields" validate:"required" swaggertype:"object"`
	// Version, when non-zero, must equal the stored version.
	Version int `json:"version,omitempty" example:"1"`
}

type ImportRequest struct {
	Items []map[string]any `json:"items" validate:"required,min=1"`
}

type ImportResponse struct {
	Collection string `json:"collection" example:"products"`
	Imported   int    `json:"imported" example:"25"`
}

type DocumentResponse struct {
	ID         string         `json:"id" example:"1"`
	Collection string         `json:"collection" example:"products"`
	Fields     map[string]any `json:"fields" swaggertype:"object"`
	CreatedAt  time.Time      `json:"created_at" example:"2024-01-15T00:00:00Z"`
	UpdatedAt  time.Time      `json:"updated_at" example:"2024-01-15T00:00:00Z"`
	Version    int            `json:"version" example:"1"`
}

func documentToResponse(doc *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:         doc.ID,
		Collection: doc.Collection,
		Fields:     doc.Fields,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
		Version:    doc.Version,
	}
}

func (h *AdminHandler) decodeFields(w http.ResponseWriter, r *http.Request) (*DocumentRequest, bool) {
	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendBadBody(w, r, err)
		return nil, false
	}
	if req.Fields == nil {
		middleware.SendValidationError(w, r, "fields are required", nil)
		return nil, false
	}

	fields, err := h.sanitizer.SanitizeFields(req.Fields)
	if err != nil {
		middleware.SendValidationError(w, r, "invalid field content", map[string]any{
			"error": err.Error(),
		})
		return nil, false
	}
	req.Fields = fields
	return &req, true
}

// CreateDocument godoc
// @Summary Create a document
// @Description Validates, sanitises and stores a new document. An id field is generated when absent.
// @Tags admin
// @Accept json
// @Produce json
// @Param collection path string true "Collection"
// @Param document body DocumentRequest true "Document fields"
// @Success 201 {object} DocumentResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /api/v1/admin/{collection} [post]
func (h *AdminHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	req, ok := h.decodeFields(w, r)
	if !ok {
		return
	}

	doc, err := h.engine.CreateDocument(r.Context(), collection, req.Fields)
	if err != nil {
		middleware.SendAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, documentToResponse(doc))
}

// GetDocument godoc
// @Summary Get a document
// @Tags admin
// @Produce json
// @Param collection path string true "Collection"
// @Param id path string true "Document ID"
// @Success 200 {object} DocumentResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/admin/{collection}/{id} [get]
func (h *AdminHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.engine.GetDocument(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		middleware.SendAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(doc))
}

// UpdateDocument godoc
// @Summary Replace a document's fields
// @Tags admin
// @Accept json
// @Produce json
// @Param collection path string true "Collection"
// @Param id path string true "Document ID"
// @Param document body DocumentRequest true "Document fields and expected version"
// @Success 200 {object} DocumentResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /api/v1/admin/{collection}/{id} [put]
func (h *AdminHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeFields(w, r)
	if !ok {
		return
	}

	doc, err := h.engine.UpdateDocument(r.Context(),
		chi.URLParam(r, "collection"), chi.URLParam(r, "id"), req.Fields, req.Version)
	if err != nil {
		middleware.SendAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(doc))
}

// DeleteDocument godoc
// @Summary Delete a document
// @Tags admin
// @Param collection path string true "Collection"
// @Param id path string true "Document ID"
// @Success 204 "No Content"
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/admin/{collection}/{id} [delete]
func (h *AdminHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteDocument(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id")); err != nil {
		middleware.SendAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ImportDocuments godoc
// @Summary Bulk import documents
// @Description Every item is validated before anything is written. All items are stored in one transaction, so a failure imports nothing.
// @Tags admin
// @Accept json
// @Produce json
// @Param collection path string true "Collection"
// @Param items body ImportRequest true "Documents"
// @Success 201 {object} ImportResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /api/v1/admin/{collection}/import [post]
func (h *AdminHandler) ImportDocuments(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendBadBody(w, r, err)
		return
	}
	if len(req.Items) == 0 {
		middleware.SendValidationError(w, r, "items are required", nil)
		return
	}

	items := make([]map[string]any, 0, len(req.Items))
	for i, item := range req.Items {
		fields, err := h.sanitizer.SanitizeFields(item)
		if err != nil {
			middleware.SendValidationError(w, r, "invalid field content", map[string]any{
				"index": i,
				"error": err.Error(),
			})
			return
		}
		items = append(items, fields)
	}

	imported, err := h.engine.ImportDocuments(r.Context(), collection, items)
	if err != nil {
		middleware.SendError(w, r, withImported(err, imported), middleware.HTTPErrorFromAppError(err))
		return
	}

	writeJSON(w, http.StatusCreated, ImportResponse{Collection: collection, Imported: imported})
}

// withImported records how much of a failed import was committed.
func withImported(err error, imported int) error {
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		appErr = utils.NewAppError(utils.CodeInternal, "import failed", err)
	}
	return appErr.WithDetail("imported", imported)
}

// Dashboard godoc
// @Summary Dashboard statistics
// @Tags admin
// @Produce json
// @Success 200 {object} core.DashboardStats
// @Router /api/v1/admin/dashboard [get]
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.DashboardStats(r.Context())
	if err != nil {
		middleware.SendAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// analyticsPeriods maps a period name to its length in days.
var analyticsPeriods = map[string]int{
	"week":    7,
	"month":   30,
	"quarter": 90,
	"year":    365,
}

// analyticsRange resolves from/to (YYYY-MM-DD) and period into an inclusive
// day range. A missing to means today; a missing from means period days
// ending at to.
func analyticsRange(values url.Values, now time.Time) (time.Time, time.Time, error) {
	period := values.Get("period")
	if period == "" {
		period = "week"
	}
	days, ok := analyticsPeriods[period]
	if !ok {
		return time.Time{}, time.Time{}, utils.NewAppError(utils.CodeValidation, "unknown analytics period", nil).
			WithDetail("period", period)
	}

	to := now.UTC()
	if raw := values.Get("to"); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return time.Time{}, time.Time{}, utils.NewAppError(utils.CodeValidation, "to must be a YYYY-MM-DD date", err)
		}
		to = t
	}
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)

	from := to.AddDate(0, 0, 1-days)
	if raw := values.Get("from"); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return time.Time{}, time.Time{}, utils.NewAppError(utils.CodeValidation, "from must be a YYYY-MM-DD date", err)
		}
		from = t
	}
	return from, to, nil
}

// Analytics godoc
// @Summary Sales analytics
// @Description Per-day sales, orders and customers bucketed by order date, plus products ranked by sales
// @Tags admin
// @Produce json
// @Param from query string false "First day, YYYY-MM-DD"
// @Param to query string false "Last day, YYYY-MM-DD (default today)"
// @Param period query string false "Window when from is absent" Enums(week, month, quarter, year)
// @Success 200 {object} core.Analytics
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/v1/admin/analytics [get]
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	from, to, err := analyticsRange(r.URL.Query(), time.Now())
	if err != nil {
		middleware.SendAppError(w, r, err)
		return
	}

	report, err := h.engine.Analytics(r.Context(), from, to)
	if err != nil {
		middleware.SendAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Stats godoc
// @Summary Engine statistics
// @Description Cache, transaction and collection version counters
// @Tags admin
// @Produce json
// @Success 200 {object} core.EngineStats
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Stats(r.Context()))
}
