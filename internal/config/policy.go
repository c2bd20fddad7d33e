package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BookingPolicy tunes booking lifecycle behavior without a redeploy.
type BookingPolicy struct {
	// How long a pending booking may wait for payment before it expires.
	PendingTTLMinutes int `mapstructure:"pendingTtlMinutes"`
	// Platform fee in basis points, taken out of the host payout on confirm.
	PlatformFeeBps int `mapstructure:"platformFeeBps"`
	// Whether pending-with-payment bookings count toward area occupancy.
	CountPendingOccupancy bool `mapstructure:"countPendingOccupancy"`
}

func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		PendingTTLMinutes:     30,
		PlatformFeeBps:        1000,
		CountPendingOccupancy: true,
	}
}

func (p BookingPolicy) PendingTTL() time.Duration {
	return time.Duration(p.PendingTTLMinutes) * time.Minute
}

type BookingPolicyHolder struct {
	current atomic.Value // holds BookingPolicy
}

func NewBookingPolicyHolder(logger *zap.Logger) (*BookingPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("booking")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/deskhive/config")
	v.AddConfigPath("/etc/deskhive")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DESKHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultBookingPolicy()
		v.SetDefault("booking.pendingTtlMinutes", defaults.PendingTTLMinutes)
		v.SetDefault("booking.platformFeeBps", defaults.PlatformFeeBps)
		v.SetDefault("booking.countPendingOccupancy", defaults.CountPendingOccupancy)
	}

	var policy BookingPolicy
	if err := v.UnmarshalKey("booking", &policy); err != nil {
		return nil, err
	}
	if err := validateBookingPolicy(policy); err != nil {
		return nil, err
	}

	holder := &BookingPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BookingPolicy
		if err := v.UnmarshalKey("booking", &updated); err != nil {
			logger.Warn("booking policy reload failed", zap.Error(err))
			return
		}
		if err := validateBookingPolicy(updated); err != nil {
			logger.Warn("booking policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		logger.Info("booking policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BookingPolicyHolder) Get() BookingPolicy {
	return h.current.Load().(BookingPolicy)
}

// NewStaticBookingPolicyHolder is used by tests to pin a policy.
func NewStaticBookingPolicyHolder(policy BookingPolicy) *BookingPolicyHolder {
	holder := &BookingPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func validateBookingPolicy(p BookingPolicy) error {
	if p.PendingTTLMinutes <= 0 {
		return errors.New("booking policy: pendingTtlMinutes must be positive")
	}
	if p.PlatformFeeBps < 0 || p.PlatformFeeBps >= 10000 {
		return errors.New("booking policy: platformFeeBps out of range")
	}
	return nil
}
