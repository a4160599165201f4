// Package wiring assembles the service graph shared by the API server and the
// cron worker.
package wiring

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bazaar-backend/internal/checkout"
	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/otp"
	"github.com/angelmondragon/bazaar-backend/internal/paymentmethods"
	"github.com/angelmondragon/bazaar-backend/internal/payments"
	products "github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/internal/settings"
	"github.com/angelmondragon/bazaar-backend/internal/settlement"
	"github.com/angelmondragon/bazaar-backend/internal/shipments"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/internal/users"
	"github.com/angelmondragon/bazaar-backend/internal/withdrawals"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/gateways/phonepe"
	"github.com/angelmondragon/bazaar-backend/pkg/gateways/razorpay"
	"github.com/angelmondragon/bazaar-backend/pkg/gateways/sabpaisa"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/logistics"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/pubsub"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

// Services holds every repository and service a binary may need.
type Services struct {
	StoresRepo        *stores.Repository
	OrdersRepo        orders.Repository
	LedgerRepo        ledger.Repository
	NotificationsRepo notifications.Repository

	Logistics *logistics.Client
	PubSub    *pubsub.Client

	OTP            otp.Service
	Users          users.Service
	Stores         stores.Service
	Products       products.Service
	Settings       settings.Service
	Ledger         ledger.Service
	Settlement     settlement.Service
	Orders         orders.Service
	Checkout       checkout.Service
	Payments       payments.Service
	Shipments      shipments.Service
	Withdrawals    withdrawals.Service
	PaymentMethods paymentmethods.Service
	Notifications  notifications.Service
}

// Build wires the services on top of the shared clients. Gateways without
// credentials are skipped; the logistics provider is required.
func Build(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (*Services, error) {
	conn := dbClient.DB()
	s := &Services{
		StoresRepo:        stores.NewRepository(conn),
		OrdersRepo:        orders.NewRepository(conn),
		LedgerRepo:        ledger.NewRepository(conn),
		NotificationsRepo: notifications.NewRepository(conn),
	}
	usersRepo := users.NewRepository(conn)

	var err error
	s.Logistics, err = logistics.NewClient(logistics.Config{
		BaseURL:         cfg.Logistics.BaseURL,
		Email:           cfg.Logistics.Email,
		Password:        cfg.Logistics.Password,
		AuthTimeout:     cfg.Logistics.AuthTimeout,
		ShipmentTimeout: cfg.Logistics.ShipmentTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("logistics client: %w", err)
	}

	var publisher notifications.Publisher
	if cfg.PubSub.Enabled() {
		s.PubSub, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, fmt.Errorf("pubsub client: %w", err)
		}
		publisher = s.PubSub
	}
	notifier, err := notifications.NewNotifier(s.NotificationsRepo, publisher, logg)
	if err != nil {
		return nil, err
	}
	if s.Notifications, err = notifications.NewService(s.NotificationsRepo); err != nil {
		return nil, err
	}

	if s.OTP, err = otp.NewService(otp.ServiceParams{
		Store:       redisClient,
		Delivery:    otp.NewLogDelivery(logg, cfg.OTP.RevealCodes && !cfg.App.IsProd()),
		Logger:      logg,
		TTL:         cfg.OTP.TTL,
		MaxAttempts: cfg.OTP.MaxAttempts,
	}); err != nil {
		return nil, err
	}

	if s.Users, err = users.NewService(usersRepo, dbClient, logg); err != nil {
		return nil, err
	}
	if s.Stores, err = stores.NewService(s.StoresRepo, usersRepo, s.Logistics, cfg.Logistics.FallbackPincode, logg); err != nil {
		return nil, err
	}
	if s.Products, err = products.NewService(products.NewRepository(conn), s.StoresRepo); err != nil {
		return nil, err
	}
	if s.Settings, err = settings.NewService(settings.NewRepository(conn)); err != nil {
		return nil, err
	}
	if s.Ledger, err = ledger.NewService(s.LedgerRepo); err != nil {
		return nil, err
	}
	if s.Settlement, err = settlement.NewService(dbClient, s.OrdersRepo, s.Ledger, s.LedgerRepo, s.Settings, notifier, logg); err != nil {
		return nil, err
	}
	if s.Orders, err = orders.NewService(s.OrdersRepo, dbClient, s.Settlement, logg); err != nil {
		return nil, err
	}
	if s.Checkout, err = checkout.NewService(dbClient, s.OrdersRepo, s.StoresRepo, s.Settings, notifier, logg); err != nil {
		return nil, err
	}

	gateways, err := buildGateways(ctx, cfg, logg)
	if err != nil {
		return nil, err
	}
	if s.Payments, err = payments.NewService(dbClient, s.OrdersRepo, s.LedgerRepo, s.Checkout, cfg.Payments.PublicBaseURL, metrics.NewPaymentMetrics(reg), logg, gateways...); err != nil {
		return nil, err
	}

	if s.Shipments, err = shipments.NewService(shipments.ServiceParams{
		Tx:              dbClient,
		Orders:          s.OrdersRepo,
		Charges:         shipments.NewChargeRepository(conn),
		Stores:          s.StoresRepo,
		Couriers:        s.Settings,
		Settings:        s.Settings,
		Progress:        s.Orders,
		Provider:        s.Logistics,
		Metrics:         metrics.NewShipmentMetrics(reg),
		FallbackPincode: cfg.Logistics.FallbackPincode,
		Logger:          logg,
	}); err != nil {
		return nil, err
	}

	paymentSettingsRepo := paymentmethods.NewRepository(conn)
	if s.PaymentMethods, err = paymentmethods.NewService(paymentmethods.ServiceParams{
		Repository:        paymentSettingsRepo,
		TransactionRunner: dbClient,
	}); err != nil {
		return nil, err
	}
	if s.Withdrawals, err = withdrawals.NewService(withdrawals.NewRepository(conn), dbClient, s.LedgerRepo, s.Ledger, paymentSettingsRepo, notifier, logg); err != nil {
		return nil, err
	}

	return s, nil
}

// Close releases the clients Build opened.
func (s *Services) Close() error {
	if s == nil || s.PubSub == nil {
		return nil
	}
	return s.PubSub.Close()
}

func buildGateways(ctx context.Context, cfg *config.Config, logg *logger.Logger) ([]payments.Gateway, error) {
	var gateways []payments.Gateway

	if cfg.PhonePe.ClientID != "" {
		client, err := phonepe.NewClient(phonepe.Config{
			AuthURL:          cfg.PhonePe.AuthURL,
			BaseURL:          cfg.PhonePe.BaseURL,
			ClientID:         cfg.PhonePe.ClientID,
			ClientSecret:     cfg.PhonePe.ClientSecret,
			ClientVersion:    cfg.PhonePe.ClientVersion,
			Timeout:          cfg.PhonePe.Timeout,
			CallbackUsername: cfg.PhonePe.CallbackUsername,
			CallbackPassword: cfg.PhonePe.CallbackPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("phonepe client: %w", err)
		}
		gateways = append(gateways, payments.NewPhonePeGateway(client))
	}

	if cfg.Razorpay.KeyID != "" {
		client, err := razorpay.NewClient(razorpay.Config{
			BaseURL:       cfg.Razorpay.BaseURL,
			KeyID:         cfg.Razorpay.KeyID,
			KeySecret:     cfg.Razorpay.KeySecret,
			WebhookSecret: cfg.Razorpay.WebhookSecret,
			Timeout:       cfg.Razorpay.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("razorpay client: %w", err)
		}
		gateways = append(gateways, payments.NewRazorpayGateway(client))
	}

	if cfg.SabPaisa.ClientCode != "" {
		client, err := sabpaisa.NewClient(sabpaisa.Config{
			InitURL:           cfg.SabPaisa.InitURL,
			StatusURL:         cfg.SabPaisa.StatusURL,
			ClientCode:        cfg.SabPaisa.ClientCode,
			AESKey:            cfg.SabPaisa.AESKey,
			AESIV:             cfg.SabPaisa.AESIV,
			TransUserName:     cfg.SabPaisa.TransUserName,
			TransUserPassword: cfg.SabPaisa.TransUserPassword,
			MCC:               cfg.SabPaisa.MCC,
			Timeout:           cfg.SabPaisa.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("sabpaisa client: %w", err)
		}
		gateways = append(gateways, payments.NewSabPaisaGateway(client))
	}

	if len(gateways) == 0 {
		logg.Warn(ctx, "no payment gateway configured; online checkout disabled")
	}
	return gateways, nil
}
