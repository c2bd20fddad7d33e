package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	partnerdomain "github.com/smallbiznis/deskhive/internal/partner/domain"
)

type registerPartnerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) RegisterPartner(c *gin.Context) {
	authID := c.GetString(ctxAuthID)
	if authID == "" {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var req registerPartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	partner, err := s.partnerSvc.Register(c.Request.Context(), partnerdomain.RegisterInput{
		AuthID: authID,
		Name:   strings.TrimSpace(req.Name),
		Email:  strings.TrimSpace(req.Email),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": partner})
}

func (s *Server) ListPendingVerifications(c *gin.Context) {
	partners, err := s.partnerSvc.ListPendingVerification(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": partners})
}

type reviewVerificationRequest struct {
	Decision string `json:"decision"`
}

func (s *Server) ReviewVerification(c *gin.Context) {
	partnerID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || partnerID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	var req reviewVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var approve bool
	switch strings.ToLower(strings.TrimSpace(req.Decision)) {
	case "approve", "approved":
		approve = true
	case "reject", "rejected":
		approve = false
	default:
		AbortWithError(c, partnerdomain.ErrInvalidDecision)
		return
	}

	partner, err := s.partnerSvc.Review(c.Request.Context(), partnerID, approve)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": partner})
}
