package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/deskhive/internal/authorization"
)

func (s *Server) ListNotifications(c *gin.Context) {
	recipientID, err := s.currentRecipientID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	notifications, err := s.notificationSvc.ListForRecipient(c.Request.Context(), recipientID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": notifications})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	recipientID, err := s.currentRecipientID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	notificationID, err := snowflake.ParseString(c.Param("id"))
	if err != nil || notificationID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := s.notificationSvc.MarkRead(c.Request.Context(), notificationID, recipientID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "read"}})
}

// currentRecipientID maps the principal to the record notifications are
// addressed to: the partner row for partners, the customer row otherwise.
func (s *Server) currentRecipientID(c *gin.Context) (snowflake.ID, error) {
	if c.GetString(ctxRole) == authorization.RolePartner {
		partner, err := s.currentPartner(c)
		if err != nil {
			return 0, err
		}
		return partner.ID, nil
	}
	cust, err := s.currentCustomer(c)
	if err != nil {
		return 0, err
	}
	return cust.ID, nil
}
