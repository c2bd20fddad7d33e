package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	areadomain "github.com/smallbiznis/deskhive/internal/area/domain"
	spacedomain "github.com/smallbiznis/deskhive/internal/space/domain"
)

type createAreaRequest struct {
	SpaceID          string `json:"space_id"`
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	MaxCapacity      int    `json:"max_capacity"`
	RequiresApproval bool   `json:"requires_approval"`
}

func (s *Server) ListAreasBySpace(c *gin.Context) {
	spaceID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || spaceID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	areas, err := s.areaSvc.ListBySpace(c.Request.Context(), spaceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": areas})
}

func (s *Server) GetAreaByID(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{"data": area})
}

func (s *Server) CreateArea(c *gin.Context) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req createAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	spaceID, err := snowflake.ParseString(req.SpaceID)
	if err != nil || spaceID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := s.requireSpaceOwner(c, partner.ID, spaceID); err != nil {
		AbortWithError(c, err)
		return
	}

	area, err := s.areaSvc.Create(c.Request.Context(), areadomain.CreateAreaInput{
		SpaceID:          spaceID,
		Name:             strings.TrimSpace(req.Name),
		Kind:             strings.TrimSpace(req.Kind),
		MaxCapacity:      req.MaxCapacity,
		RequiresApproval: req.RequiresApproval,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": area})
}

type areaApprovalRequest struct {
	RequiresApproval bool `json:"requires_approval"`
}

func (s *Server) SetAreaApproval(c *gin.Context) {
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
	var req areaApprovalRequest
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

	if err := s.areaSvc.SetApprovalRequired(c.Request.Context(), areaID, req.RequiresApproval); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"requires_approval": req.RequiresApproval}})
}

func (s *Server) DeactivateArea(c *gin.Context) {
	areaID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || areaID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := s.areaSvc.Deactivate(c.Request.Context(), areaID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "deactivated"}})
}

func (s *Server) requireSpaceOwner(c *gin.Context, partnerID, spaceID snowflake.ID) error {
	sp, err := s.spaceSvc.Get(c.Request.Context(), spaceID)
	if err != nil {
		return err
	}
	if sp.PartnerID != partnerID {
		return spacedomain.ErrNotSpaceOwner
	}
	return nil
}
