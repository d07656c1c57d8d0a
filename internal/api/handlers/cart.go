package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sumandas0/farmstore/internal/api/middleware"
	"github.com/sumandas0/farmstore/internal/core"
)

type CartHandler struct {
	engine *core.Engine
}

func NewCartHandler(engine *core.Engine) *CartHandler {
	return &CartHandler{engine: engine}
}

type CartQuoteRequest struct {
	Lines []core.CartLine `json:"lines"`
}

// Quote godoc
// @Summary Price a cart
// @Description Prices the selected lines at current catalog prices. Shipping is free from the threshold upward.
// @Tags cart
// @Accept json
// @Produce json
// @Param cart body CartQuoteRequest true "Cart lines"
// @Success 200 {object} core.CartTotals
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/cart/quote [post]
func (h *CartHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req CartQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendBadBody(w, r, err)
		return
	}

	totals, err := h.engine.QuoteCart(r.Context(), req.Lines)
	if err != nil {
		middleware.SendAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, totals)
}
