package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	pricingdomain "github.com/smallbiznis/deskhive/internal/pricing/domain"
)

type quoteRequest struct {
	AreaID  string  `json:"area_id"`
	Hours   float64 `json:"hours"`
	StartAt string  `json:"start_at"`
}

type quoteResponse struct {
	AreaID           string  `json:"area_id"`
	Hours            float64 `json:"hours"`
	PriceCents       int64   `json:"price_cents"`
	Currency         string  `json:"currency"`
	MatchedCondition *string `json:"matched_condition,omitempty"`
}

func (s *Server) CreateQuote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	areaID, err := snowflake.ParseString(req.AreaID)
	if err != nil || areaID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	bctx := pricingdomain.Context{Hours: req.Hours}
	if req.StartAt != "" {
		startAt, err := time.Parse(time.RFC3339, req.StartAt)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		utc := startAt.UTC()
		bctx.StartAt = &utc
	}

	result, err := s.pricingSvc.Quote(c.Request.Context(), areaID, bctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if result.PriceCents == nil {
		AbortWithError(c, pricingdomain.ErrNoPrice)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quoteResponse{
		AreaID:           areaID.String(),
		Hours:            req.Hours,
		PriceCents:       *result.PriceCents,
		Currency:         result.Currency,
		MatchedCondition: result.MatchedCondition,
	}})
}
