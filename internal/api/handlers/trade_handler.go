// Package handlers contains the HTTP handlers for the Insyn API
package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mbergqvist/insynsapi/internal/models"
	"github.com/mbergqvist/insynsapi/internal/search"
	"github.com/mbergqvist/insynsapi/internal/service"
	"github.com/mbergqvist/insynsapi/pkg/utils/response"
)

// TradeHandler handles the insider trade routes
type TradeHandler struct {
	tradeService *service.TradeService
	searchEngine *search.Engine
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(tradeService *service.TradeService, searchEngine *search.Engine) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
		searchEngine: searchEngine,
	}
}

// GetInsiderTrades returns all stored trades, newest first
func (h *TradeHandler) GetInsiderTrades(c echo.Context) error {
	trades, err := h.tradeService.GetInsiderTrades()
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, trades)
}

// GetTopInsiderTrades returns the highest-value trades published since yesterday
func (h *TradeHandler) GetTopInsiderTrades(c echo.Context) error {
	trades, err := h.tradeService.GetTopInsiderTrades(c.Request().Context())
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, trades)
}

// SearchInsiderTrades searches the full-text index over stored trades
func (h *TradeHandler) SearchInsiderTrades(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`q` is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	trades, err := h.searchEngine.Search(query, limit)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, trades)
}

// GetBuyActivity returns the most active buy-side companies
func (h *TradeHandler) GetBuyActivity(c echo.Context) error {
	days, _ := strconv.Atoi(c.QueryParam("days"))
	top, _ := strconv.Atoi(c.QueryParam("top"))
	companyName := c.QueryParam("company")

	activity, err := h.tradeService.GetBuyActivity(companyName, days, top)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, activity)
}

// PostInsiderTrades ingests a batch of normalized trade records
func (h *TradeHandler) PostInsiderTrades(c echo.Context) error {
	var trades []*models.InsiderTradeModel
	if err := c.Bind(&trades); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", err.Error())
	}
	if len(trades) == 0 {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", service.MsgNoData)
	}

	message, err := h.tradeService.AddInsiderTrades(c.Request().Context(), trades)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessMessageResponse(c, message)
}
