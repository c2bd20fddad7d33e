package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	pricingdomain "github.com/smallbiznis/deskhive/internal/pricing/domain"
)

type createRuleRequest struct {
	BaseRateCents *int64                    `json:"base_rate_cents"`
	Unit          string                    `json:"unit"`
	Currency      string                    `json:"currency"`
	Conditions    []pricingdomain.Condition `json:"conditions"`
}

func (s *Server) CreatePriceRule(c *gin.Context) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	areaID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || areaID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	area, err := s.areaSvc.Get(c.Request.Context(), areaID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.requireSpaceOwner(c, partner.ID, area.SpaceID); err != nil {
		AbortWithError(c, err)
		return
	}

	rule, err := s.pricingSvc.CreateRule(c.Request.Context(), partner.ID, areaID, pricingdomain.CreateRuleInput{
		BaseRateCents: req.BaseRateCents,
		Unit:          pricingdomain.Unit(strings.ToLower(strings.TrimSpace(req.Unit))),
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
		Conditions:    req.Conditions,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rule})
}

func (s *Server) ListPriceRules(c *gin.Context) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	areaID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || areaID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	area, err := s.areaSvc.Get(c.Request.Context(), areaID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.requireSpaceOwner(c, partner.ID, area.SpaceID); err != nil {
		AbortWithError(c, err)
		return
	}

	rules, err := s.pricingSvc.ListRules(c.Request.Context(), areaID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rules})
}
