package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bazaar-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/webhooks"
	"github.com/angelmondragon/bazaar-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/bazaar-backend/internal/checkout"
	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/otp"
	"github.com/angelmondragon/bazaar-backend/internal/paymentmethods"
	"github.com/angelmondragon/bazaar-backend/internal/payments"
	products "github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/internal/settings"
	"github.com/angelmondragon/bazaar-backend/internal/shipments"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/internal/users"
	"github.com/angelmondragon/bazaar-backend/internal/webhooks"
	"github.com/angelmondragon/bazaar-backend/internal/withdrawals"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

// otpPhoneLimit caps codes sent to one phone inside the OTP window.
const otpPhoneLimit = 5

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	gatherer prometheus.Gatherer,
	redisClient *redis.Client,
	storeLookup middleware.StoreLookup,
	otpService otp.Service,
	usersService users.Service,
	storeService stores.Service,
	productService products.Service,
	checkoutService checkoutsvc.Service,
	paymentsService payments.Service,
	ordersService orders.Service,
	shipmentsService shipments.Service,
	ledgerService ledger.Service,
	withdrawalsService withdrawals.Service,
	paymentMethodsService paymentmethods.Service,
	settingsService settings.Service,
	notificationsService notifications.Service,
	callbackGuard *webhooks.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	otpPolicy := middleware.NewRateLimitPolicy("otp", cfg.OTP.IPWindow, cfg.OTP.IPLimit, otpPhoneLimit)

	// a typed nil would slip past the middleware nil check
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/payments/return", webhookcontrollers.PaymentReturn(paymentsService, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		callback := webhookcontrollers.PaymentCallback(paymentsService, nil, logg)
		if callbackGuard != nil {
			callback = webhookcontrollers.PaymentCallback(paymentsService, callbackGuard, logg)
		}
		r.Post("/{gateway}", callback)
	})

	r.Route("/api/v1/auth/otp", func(r chi.Router) {
		if redisClient != nil {
			r.Use(middleware.RateLimit(otpPolicy, redisClient, logg))
		}
		r.Post("/send", controllers.SendOTP(otpService, logg))
		r.Post("/verify", controllers.VerifyOTP(cfg.JWT, otpService, usersService, storeService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/me", controllers.Me(usersService, logg))

		r.Route("/stores", func(r chi.Router) {
			r.Post("/", controllers.CreateStore(storeService, logg))
			r.Get("/mine", controllers.MyStores(storeService, logg))
		})

		r.Post("/checkout", controllers.Checkout(checkoutService, paymentsService, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/initiate", controllers.InitiatePayment(paymentsService, logg))
			r.Get("/status", controllers.PaymentStatus(paymentsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.CustomerList(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.CustomerDetail(ordersService, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.CustomerCancel(shipmentsService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Get("/couriers", controllers.ListCouriers(settingsService, logg))

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleMerchant))
			r.Use(middleware.StoreContext(storeLookup, logg))

			r.Route("/store", func(r chi.Router) {
				r.Get("/", controllers.StoreProfile(storeService, logg))
				r.Put("/", controllers.StoreUpdate(storeService, logg))
				r.Post("/warehouse", controllers.RegisterStoreWarehouse(storeService, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.VendorListProducts(productService, logg))
				r.Post("/", controllers.VendorCreateProduct(productService, logg))
				r.Patch("/{productId}", controllers.VendorUpdateProduct(productService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.VendorList(ordersService, logg))
				r.Get("/{orderId}", ordercontrollers.VendorDetail(ordersService, logg))
				r.Post("/{orderId}/accept", ordercontrollers.VendorAccept(shipmentsService, logg))
				r.Post("/{orderId}/reject", ordercontrollers.VendorReject(ordersService, logg))
				r.Post("/{orderId}/ship", ordercontrollers.VendorShip(shipmentsService, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.VendorCancel(shipmentsService, logg))
			})
			r.Post("/shipping/rates", ordercontrollers.VendorRates(shipmentsService, logg))

			r.Route("/withdrawals", func(r chi.Router) {
				r.Get("/", controllers.VendorListWithdrawals(withdrawalsService, logg))
				r.Post("/", controllers.VendorCreateWithdrawal(withdrawalsService, logg))
			})
			r.Get("/wallet", controllers.VendorWallet(withdrawalsService, usersService, logg))
			r.Get("/wallet/history", controllers.WalletHistory(ledgerService, logg))

			r.Route("/payment-methods", func(r chi.Router) {
				r.Get("/", controllers.ListPaymentMethods(paymentMethodsService, logg))
				r.Post("/", controllers.CreatePaymentMethod(paymentMethodsService, logg))
				r.Put("/{paymentMethodId}", controllers.UpdatePaymentMethod(paymentMethodsService, logg))
				r.Delete("/{paymentMethodId}", controllers.DeletePaymentMethod(paymentMethodsService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleStaff))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", controllers.AdminListWithdrawals(withdrawalsService, logg))
			r.Post("/{withdrawalId}/approve", controllers.AdminApproveWithdrawal(withdrawalsService, logg))
			r.Post("/{withdrawalId}/reject", controllers.AdminRejectWithdrawal(withdrawalsService, logg))
		})
		r.Post("/orders/{orderId}/cancel", ordercontrollers.AdminCancel(shipmentsService, logg))
		r.Put("/users/{userId}/roles", controllers.AdminSetUserRoles(usersService, logg))
		r.Post("/payment-methods/{paymentMethodId}/review", controllers.AdminReviewPaymentMethod(paymentMethodsService, logg))

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", controllers.AdminGetSettings(settingsService, logg))
			r.Post("/", controllers.AdminCreateSettings(settingsService, logg))
			r.Put("/", controllers.AdminUpdateSettings(settingsService, logg))
		})
		r.Route("/couriers", func(r chi.Router) {
			r.Get("/", controllers.ListCouriers(settingsService, logg))
			r.Post("/", controllers.AdminSetCourier(settingsService, logg))
		})
	})

	return r
}
