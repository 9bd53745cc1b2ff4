package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/naira-pay/naira_pay/internal/apikeys"
	"github.com/naira-pay/naira_pay/internal/auth"
	"github.com/naira-pay/naira_pay/internal/config"
	"github.com/naira-pay/naira_pay/internal/events"
	"github.com/naira-pay/naira_pay/internal/funding"
	"github.com/naira-pay/naira_pay/internal/identity"
	"github.com/naira-pay/naira_pay/internal/ledger"
	"github.com/naira-pay/naira_pay/internal/middleware"
	"github.com/naira-pay/naira_pay/internal/payments"
	"github.com/naira-pay/naira_pay/internal/paystack"
	"github.com/naira-pay/naira_pay/internal/storage"
	"github.com/naira-pay/naira_pay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Events events.Publisher
	Logger *slog.Logger

	// Gateway overrides the Paystack client, used by tests.
	Gateway paystack.Gateway
}

// Setup configures middlewares and all application routes. Without a
// database the service runs on in-memory stores, which is only permitted
// in dev.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Stores. Postgres when available, snapshot-capable memory stores in dev.
	var (
		walletRepo   wallet.Repository
		ledgerStore  ledger.Store
		identityRepo identity.Repository
		apikeyRepo   apikeys.Repository
		txRunner     storage.TxRunner
	)
	if d.DB != nil {
		walletRepo = wallet.NewPostgresRepository(d.DB)
		ledgerStore = ledger.NewPostgresStore(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		apikeyRepo = apikeys.NewPostgresRepository(d.DB)
		txRunner = storage.NewPgTxRunner(d.DB)
	} else {
		memWallets := wallet.NewMemoryRepository()
		memLedger := ledger.NewMemoryStore()
		walletRepo = memWallets
		ledgerStore = memLedger
		identityRepo = identity.NewMemoryRepository()
		apikeyRepo = apikeys.NewMemoryRepository()
		txRunner = storage.NewMemoryTxRunner(memWallets, memLedger)
	}

	gateway := d.Gateway
	if gateway == nil {
		gateway = paystack.NewClient(d.Cfg.PaystackBaseURL, d.Cfg.PaystackSecretKey, d.Cfg.PaystackWebhookSecret, d.Cfg.GatewayTimeout)
	}
	publisher := d.Events
	if publisher == nil {
		publisher = events.NewLogPublisher(d.Logger)
	}

	// Services and handlers.
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	authHandler := auth.NewHandler(identitySvc, authSvc, walletRepo)

	keysSvc := apikeys.NewService(apikeyRepo)
	keysHandler := apikeys.NewHandler(keysSvc)

	fundingSvc := funding.NewService(funding.Deps{
		Wallets:      walletRepo,
		Users:        identityRepo,
		Store:        ledgerStore,
		Gateway:      gateway,
		Tx:           txRunner,
		Events:       publisher,
		Logger:       d.Logger,
		DedupeWindow: d.Cfg.DepositDedupeWindow,
		MinAmount:    d.Cfg.MinDepositAmount,
	})
	fundingHandler := funding.NewHandler(fundingSvc, gateway, d.Logger)

	paymentsSvc := payments.NewService(walletRepo, ledgerStore, txRunner, publisher, d.Cfg.MinDepositAmount, d.Logger)
	paymentsHandler := payments.NewHandler(paymentsSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes. The webhook authenticates with its own HMAC signature.
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, 5))
	RegisterWebhookRoutes(api, fundingHandler)

	protected := api.Group("", middleware.Authenticate([]byte(d.Cfg.JWTSecret), identityRepo, keysSvc))
	protected.Post("/auth/logout", middleware.RequireSession(), authHandler.Logout)
	RegisterWalletRoutes(protected, walletRepo, identityRepo, fundingHandler)
	RegisterAPIKeyRoutes(protected, keysHandler)

	// Money movement requires an Idempotency-Key when Redis is present.
	money := protected.Group("")
	if d.Cache != nil {
		money = protected.Group("", middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterFundingRoutes(money, fundingHandler)
	RegisterPaymentRoutes(money, paymentsHandler)

	return nil
}
