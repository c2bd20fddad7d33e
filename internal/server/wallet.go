package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetWallet(c *gin.Context) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	wallet, err := s.walletSvc.Get(c.Request.Context(), partner.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": wallet})
}

func (s *Server) ListWalletTransactions(c *gin.Context) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	transactions, err := s.walletSvc.ListTransactions(c.Request.Context(), partner.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": transactions})
}

func (s *Server) ListLedgerEntries(c *gin.Context) {
	partner, err := s.currentPartner(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	entries, err := s.ledgerSvc.ListEntries(c.Request.Context(), partner.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}
