package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	areadomain "github.com/smallbiznis/deskhive/internal/area/domain"
	bookingdomain "github.com/smallbiznis/deskhive/internal/booking/domain"
	customerdomain "github.com/smallbiznis/deskhive/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/deskhive/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/deskhive/internal/notification/domain"
	partnerdomain "github.com/smallbiznis/deskhive/internal/partner/domain"
	paymentdomain "github.com/smallbiznis/deskhive/internal/payment/domain"
	pricingdomain "github.com/smallbiznis/deskhive/internal/pricing/domain"
	spacedomain "github.com/smallbiznis/deskhive/internal/space/domain"
	walletdomain "github.com/smallbiznis/deskhive/internal/wallet/domain"
	"github.com/smallbiznis/deskhive/pkg/db"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		if db.IsPostgres(conn) {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}
		// Non-postgres targets (sqlite dev/test, mysql) derive the schema
		// from the models.
		return AutoMigrate(conn)
	}),
)

// AutoMigrate creates the schema from the gorm models. Shared with tests.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&customerdomain.Customer{},
		&partnerdomain.Partner{},
		&spacedomain.Space{},
		&areadomain.Area{},
		&pricingdomain.PriceRule{},
		&bookingdomain.Booking{},
		&paymentdomain.EventRecord{},
		&notificationdomain.Notification{},
		&ledgerdomain.Account{},
		&ledgerdomain.Entry{},
		&ledgerdomain.EntryLine{},
		&walletdomain.Wallet{},
		&walletdomain.Transaction{},
	)
}
