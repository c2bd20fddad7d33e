package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/deskhive/internal/authorization"
	customerdomain "github.com/smallbiznis/deskhive/internal/customer/domain"
	partnerdomain "github.com/smallbiznis/deskhive/internal/partner/domain"
)

// Identity comes from the upstream auth gateway. The gateway terminates
// authentication and forwards the verified principal in headers; this
// service only resolves it to marketplace records.
const (
	headerAuthID    = "X-Auth-Id"
	headerAuthEmail = "X-Auth-Email"
	headerAuthName  = "X-Auth-Name"
	headerAuthRole  = "X-Auth-Role"
)

const (
	ctxAuthID   = "auth_id"
	ctxRole     = "role"
	ctxCustomer = "customer"
	ctxPartner  = "partner"
)

func (s *Server) IdentityRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authID := strings.TrimSpace(c.GetHeader(headerAuthID))
		if authID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		role := strings.ToLower(strings.TrimSpace(c.GetHeader(headerAuthRole)))
		if role == "" {
			role = authorization.RoleCustomer
		}
		c.Set(ctxAuthID, authID)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// currentCustomer resolves (and on first sight creates) the customer
// record for the authenticated principal.
func (s *Server) currentCustomer(c *gin.Context) (*customerdomain.Customer, error) {
	if v, ok := c.Get(ctxCustomer); ok {
		if cust, ok := v.(*customerdomain.Customer); ok {
			return cust, nil
		}
	}
	authID, _ := c.Get(ctxAuthID)
	id, _ := authID.(string)
	if id == "" {
		return nil, ErrUnauthorized
	}
	cust, err := s.customerSvc.Ensure(c.Request.Context(), id,
		strings.TrimSpace(c.GetHeader(headerAuthName)),
		strings.TrimSpace(c.GetHeader(headerAuthEmail)))
	if err != nil {
		return nil, err
	}
	c.Set(ctxCustomer, cust)
	return cust, nil
}

// currentPartner resolves the partner record; unlike customers, partners
// must have registered explicitly.
func (s *Server) currentPartner(c *gin.Context) (*partnerdomain.Partner, error) {
	if v, ok := c.Get(ctxPartner); ok {
		if p, ok := v.(*partnerdomain.Partner); ok {
			return p, nil
		}
	}
	authID, _ := c.Get(ctxAuthID)
	id, _ := authID.(string)
	if id == "" {
		return nil, ErrUnauthorized
	}
	p, err := s.partnerSvc.GetByAuthID(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	c.Set(ctxPartner, p)
	return p, nil
}

func (s *Server) PartnerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != authorization.RolePartner {
			AbortWithError(c, ErrForbidden)
			return
		}
		if _, err := s.currentPartner(c); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != authorization.RoleAdmin {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// authorize gates the route on the principal's role via casbin.
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		if err := s.authzSvc.Authorize(c.Request.Context(), role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// QuoteRateLimit throttles unauthenticated quote traffic per caller,
// keyed by principal when present and client IP otherwise.
func (s *Server) QuoteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.quoteLimiter.Enabled() {
			c.Next()
			return
		}
		caller := strings.TrimSpace(c.GetHeader(headerAuthID))
		if caller == "" {
			caller = c.ClientIP()
		}
		if !s.quoteLimiter.Allow(c.Request.Context(), caller) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
