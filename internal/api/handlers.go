package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"p2pquotes/internal/models"
)

// handleHealth reports service liveness
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  "healthy",
			Version: s.config.Version,
			Uptime:  int64(time.Since(s.startTime).Seconds()),
		})
	}
}

// handleMetrics exposes the service counters
func (s *Server) handleMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.collector.GetSnapshot())
	}
}

// handleState returns the current view state
func (s *Server) handleState() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.quotes.View())
	}
}

// handleInit runs the popup-mount sequence: restore persisted filters
// if any, start the offer and rate fetches, and return the view as it
// stands. The popup follows the live state over the WebSocket stream.
func (s *Server) handleInit() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.quotes.Initialize(c.Request.Context())
		c.JSON(http.StatusOK, s.quotes.View())
	}
}

// handleSetAsset selects the quoted asset
func (s *Server) handleSetAsset() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SetAssetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		asset, err := req.Validate()
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		s.quotes.SetAsset(asset)
		c.JSON(http.StatusOK, s.quotes.View())
	}
}

// handleSetSide selects the trade direction
func (s *Server) handleSetSide() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SetSideRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		side, err := req.Validate()
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		s.quotes.SetSide(side)
		c.JSON(http.StatusOK, s.quotes.View())
	}
}

// handleSetPaymentMethod selects the payment method filter
func (s *Server) handleSetPaymentMethod() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SetPaymentMethodRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		method, err := req.Validate()
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		s.quotes.SetPaymentMethod(method)
		c.JSON(http.StatusOK, s.quotes.View())
	}
}

// handleSetVerifiedOnly toggles the verified-merchant filter
func (s *Server) handleSetVerifiedOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SetVerifiedOnlyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		verified, err := req.Validate()
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		s.quotes.SetVerifiedOnly(verified)
		c.JSON(http.StatusOK, s.quotes.View())
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.NewErrorResponse(
		"VALIDATION_ERROR",
		message,
		c.GetString("request_id"),
	))
}
