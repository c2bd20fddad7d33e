package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/deskhive/internal/area"
	areadomain "github.com/smallbiznis/deskhive/internal/area/domain"
	"github.com/smallbiznis/deskhive/internal/authorization"
	"github.com/smallbiznis/deskhive/internal/booking"
	bookingdomain "github.com/smallbiznis/deskhive/internal/booking/domain"
	"github.com/smallbiznis/deskhive/internal/clock"
	"github.com/smallbiznis/deskhive/internal/config"
	"github.com/smallbiznis/deskhive/internal/customer"
	customerdomain "github.com/smallbiznis/deskhive/internal/customer/domain"
	"github.com/smallbiznis/deskhive/internal/ledger"
	ledgerdomain "github.com/smallbiznis/deskhive/internal/ledger/domain"
	"github.com/smallbiznis/deskhive/internal/migration"
	"github.com/smallbiznis/deskhive/internal/notification"
	notificationdomain "github.com/smallbiznis/deskhive/internal/notification/domain"
	"github.com/smallbiznis/deskhive/internal/observability"
	obsmiddleware "github.com/smallbiznis/deskhive/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/deskhive/internal/observability/metrics"
	obstracing "github.com/smallbiznis/deskhive/internal/observability/tracing"
	"github.com/smallbiznis/deskhive/internal/partner"
	partnerdomain "github.com/smallbiznis/deskhive/internal/partner/domain"
	"github.com/smallbiznis/deskhive/internal/payment"
	paymentdomain "github.com/smallbiznis/deskhive/internal/payment/domain"
	"github.com/smallbiznis/deskhive/internal/pricing"
	pricingdomain "github.com/smallbiznis/deskhive/internal/pricing/domain"
	"github.com/smallbiznis/deskhive/internal/providers/email"
	"github.com/smallbiznis/deskhive/internal/providers/pdf"
	"github.com/smallbiznis/deskhive/internal/ratelimit"
	"github.com/smallbiznis/deskhive/internal/space"
	spacedomain "github.com/smallbiznis/deskhive/internal/space/domain"
	"github.com/smallbiznis/deskhive/internal/wallet"
	walletdomain "github.com/smallbiznis/deskhive/internal/wallet/domain"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	fx.Provide(registerGin),
	authorization.Module,
	migration.Module,
	email.Module,
	pdf.Module,
	customer.Module,
	partner.Module,
	space.Module,
	area.Module,
	pricing.Module,
	booking.Module,
	payment.Module,
	notification.Module,
	ledger.Module,
	wallet.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	authzSvc        authorization.Service
	customerSvc     customerdomain.Service
	partnerSvc      partnerdomain.Service
	spaceSvc        spacedomain.Service
	areaSvc         areadomain.Service
	pricingSvc      pricingdomain.Service
	bookingSvc      bookingdomain.Service
	paymentSvc      paymentdomain.Service
	notificationSvc notificationdomain.Service
	ledgerSvc       ledgerdomain.Service
	walletSvc       walletdomain.Service
	pdfProvider     *pdf.Provider
	quoteLimiter    *ratelimit.QuoteLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	AuthzSvc        authorization.Service
	CustomerSvc     customerdomain.Service
	PartnerSvc      partnerdomain.Service
	SpaceSvc        spacedomain.Service
	AreaSvc         areadomain.Service
	PricingSvc      pricingdomain.Service
	BookingSvc      bookingdomain.Service
	PaymentSvc      paymentdomain.Service
	NotificationSvc notificationdomain.Service
	LedgerSvc       ledgerdomain.Service
	WalletSvc       walletdomain.Service
	PDFProvider     *pdf.Provider
	QuoteLimiter    *ratelimit.QuoteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		authzSvc:        p.AuthzSvc,
		customerSvc:     p.CustomerSvc,
		partnerSvc:      p.PartnerSvc,
		spaceSvc:        p.SpaceSvc,
		areaSvc:         p.AreaSvc,
		pricingSvc:      p.PricingSvc,
		bookingSvc:      p.BookingSvc,
		paymentSvc:      p.PaymentSvc,
		notificationSvc: p.NotificationSvc,
		ledgerSvc:       p.LedgerSvc,
		walletSvc:       p.WalletSvc,
		pdfProvider:     p.PDFProvider,
		quoteLimiter:    p.QuoteLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerPartnerRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Marketplace browsing (no identity needed) --------
	api.GET("/spaces", s.ListSpaces)
	api.GET("/spaces/:id", s.GetSpaceByID)
	api.GET("/spaces/:id/areas", s.ListAreasBySpace)
	api.GET("/areas/:id", s.GetAreaByID)

	// -------- Quotes --------
	api.POST("/quotes", s.QuoteRateLimit(), s.CreateQuote)

	// -------- Bookings --------
	api.POST("/bookings", s.IdentityRequired(), s.authorize(authorization.ObjectBooking, authorization.ActionCreate), s.CreateBooking)
	api.GET("/bookings", s.IdentityRequired(), s.authorize(authorization.ObjectBooking, authorization.ActionView), s.ListBookings)
	api.GET("/bookings/:id", s.IdentityRequired(), s.authorize(authorization.ObjectBooking, authorization.ActionView), s.GetBookingByID)
	api.POST("/bookings/:id/cancel", s.IdentityRequired(), s.authorize(authorization.ObjectBooking, authorization.ActionCancel), s.CancelBooking)
	api.GET("/bookings/:id/receipt", s.IdentityRequired(), s.authorize(authorization.ObjectBooking, authorization.ActionView), s.BookingReceipt)

	// -------- Notifications --------
	api.GET("/notifications", s.IdentityRequired(), s.ListNotifications)
	api.POST("/notifications/:id/read", s.IdentityRequired(), s.MarkNotificationRead)

	// -------- Payment webhooks --------
	api.POST("/payments/webhooks/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerPartnerRoutes() {
	pt := s.engine.Group("/partner")
	pt.POST("/register", s.IdentityRequired(), s.RegisterPartner)

	pt.Use(s.IdentityRequired(), s.PartnerRequired())

	pt.POST("/spaces", s.authorize(authorization.ObjectSpace, authorization.ActionCreate), s.CreateSpace)
	pt.PUT("/spaces/:id", s.authorize(authorization.ObjectSpace, authorization.ActionUpdate), s.UpdateSpace)
	pt.GET("/spaces", s.authorize(authorization.ObjectSpace, authorization.ActionView), s.ListPartnerSpaces)
	pt.POST("/areas", s.authorize(authorization.ObjectArea, authorization.ActionCreate), s.CreateArea)
	pt.POST("/areas/:id/approval", s.authorize(authorization.ObjectArea, authorization.ActionUpdate), s.SetAreaApproval)

	pt.POST("/areas/:id/rules", s.authorize(authorization.ObjectPriceRule, authorization.ActionCreate), s.CreatePriceRule)
	pt.GET("/areas/:id/rules", s.authorize(authorization.ObjectPriceRule, authorization.ActionView), s.ListPriceRules)

	pt.GET("/bookings", s.authorize(authorization.ObjectBooking, authorization.ActionView), s.ListPartnerBookings)
	pt.POST("/bookings/:id/approve", s.authorize(authorization.ObjectBooking, authorization.ActionApprove), s.ApproveBooking)
	pt.POST("/bookings/:id/reject", s.authorize(authorization.ObjectBooking, authorization.ActionReject), s.RejectBooking)
	pt.POST("/bookings/:id/checkin", s.authorize(authorization.ObjectBooking, authorization.ActionUpdate), s.CheckInBooking)
	pt.POST("/bookings/:id/checkout", s.authorize(authorization.ObjectBooking, authorization.ActionUpdate), s.CheckOutBooking)

	pt.GET("/wallet", s.authorize(authorization.ObjectWallet, authorization.ActionView), s.GetWallet)
	pt.GET("/wallet/transactions", s.authorize(authorization.ObjectWallet, authorization.ActionView), s.ListWalletTransactions)
	pt.GET("/ledger", s.authorize(authorization.ObjectLedger, authorization.ActionView), s.ListLedgerEntries)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.IdentityRequired(), s.AdminRequired())

	admin.GET("/verifications", s.authorize(authorization.ObjectVerification, authorization.ActionReview), s.ListPendingVerifications)
	admin.POST("/verifications/:id", s.authorize(authorization.ObjectVerification, authorization.ActionReview), s.ReviewVerification)
	admin.POST("/spaces/:id/deactivate", s.authorize(authorization.ObjectSpace, authorization.ActionManage), s.DeactivateSpace)
	admin.POST("/areas/:id/deactivate", s.authorize(authorization.ObjectArea, authorization.ActionManage), s.DeactivateArea)
}
