// Package api contains the API routes for the Insyn API
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mbergqvist/insynsapi/internal/api/handlers"
	"github.com/mbergqvist/insynsapi/internal/config"
	"github.com/mbergqvist/insynsapi/internal/search"
	"github.com/mbergqvist/insynsapi/internal/service"
	"github.com/mbergqvist/insynsapi/pkg/utils/response"
)

// SetupRoutes configures the routes for the API
func SetupRoutes(e *echo.Echo, cfg *config.Config, tradeService *service.TradeService, searchEngine *search.Engine) {
	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	api.GET("/", func(c echo.Context) error {
		return response.SuccessResponse(c, map[string]string{
			"name":    cfg.APIName,
			"version": cfg.APIVersion,
		})
	})

	// Trade routes
	tradeHandler := handlers.NewTradeHandler(tradeService, searchEngine)
	tradeGroup := api.Group("/trades")
	tradeGroup.GET("", tradeHandler.GetInsiderTrades)
	tradeGroup.GET("/top", tradeHandler.GetTopInsiderTrades)
	tradeGroup.GET("/search", tradeHandler.SearchInsiderTrades)
	tradeGroup.GET("/activity", tradeHandler.GetBuyActivity)
	tradeGroup.POST("", tradeHandler.PostInsiderTrades)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return response.ErrorResponse(c, http.StatusNotFound, "RouteNotFound", "route not found")
	})
}
