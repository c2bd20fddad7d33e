package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	spacedomain "github.com/smallbiznis/deskhive/internal/space/domain"
)

type spaceRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	City        string   `json:"city"`
	Address     string   `json:"address"`
	Amenities   []string `json:"amenities"`
}

func (s *Server) ListSpaces(c *gin.Context) {
	city := strings.TrimSpace(c.Query("city"))
	spaces, err := s.spaceSvc.List(c.Request.Context(), city)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": spaces})
}

func (s *Server) GetSpaceByID(c *gin.Context) {
	raw := c.Param("id")
	if id, err := snowflake.ParseString(raw); err == nil && id != 0 {
		sp, err := s.spaceSvc.Get(c.Request.Context(), id)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": sp})
		return
	}
	// Slugs double as public identifiers.
	sp, err := s.spaceSvc.GetBySlug(c.Request.Context(), raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sp})
}

func (s *Server) CreateSpace(c *gin.Context) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req spaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	sp, err := s.spaceSvc.Create(c.Request.Context(), partner.ID, spacedomain.CreateSpaceInput{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		City:        strings.TrimSpace(req.City),
		Address:     strings.TrimSpace(req.Address),
		Amenities:   req.Amenities,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sp})
}

func (s *Server) UpdateSpace(c *gin.Context) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	spaceID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || spaceID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	var req spaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	sp, err := s.spaceSvc.Update(c.Request.Context(), partner.ID, spaceID, spacedomain.CreateSpaceInput{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		City:        strings.TrimSpace(req.City),
		Address:     strings.TrimSpace(req.Address),
		Amenities:   req.Amenities,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sp})
}

func (s *Server) ListPartnerSpaces(c *gin.Context) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	spaces, err := s.spaceSvc.ListByPartner(c.Request.Context(), partner.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": spaces})
}

func (s *Server) DeactivateSpace(c *gin.Context) {
	spaceID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || spaceID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := s.spaceSvc.Deactivate(c.Request.Context(), spaceID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "deactivated"}})
}
