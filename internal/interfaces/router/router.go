package router

import (
	"context"
	"time"

	mktsvc "verdant-backend/internal/application/market"
	regsvc "verdant-backend/internal/application/registry"
	toksvc "verdant-backend/internal/application/token"
	txsvc "verdant-backend/internal/application/transactions"
	versvc "verdant-backend/internal/application/verification"
	"verdant-backend/internal/auth"
	"verdant-backend/internal/config"
	"verdant-backend/internal/events"
	healthsvc "verdant-backend/internal/health"
	"verdant-backend/internal/infrastructure/database"
	actorhandler "verdant-backend/internal/interfaces/handlers/actors"
	eventhandler "verdant-backend/internal/interfaces/handlers/events"
	healthhandler "verdant-backend/internal/interfaces/handlers/health"
	mkthandler "verdant-backend/internal/interfaces/handlers/market"
	reghandler "verdant-backend/internal/interfaces/handlers/registry"
	tokhandler "verdant-backend/internal/interfaces/handlers/token"
	txhandler "verdant-backend/internal/interfaces/handlers/transactions"
	verhandler "verdant-backend/internal/interfaces/handlers/verification"
	"verdant-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app with all middleware, services and routes.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{AllowedSuffix: cfg.CORSSuffix}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	var err error
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
	} else {
		db, err = database.OpenSQLite(cfg.SQLitePath)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, err
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opt)
	}

	recorder := &events.Recorder{DB: db, Rdb: rdb, Channel: cfg.EventChannel}
	authService := &auth.Service{DB: db, Recorder: recorder}

	registryService := &regsvc.Service{DB: db, Auth: authService, Recorder: recorder}
	verificationService := &versvc.Service{DB: db, Auth: authService, Recorder: recorder, Registry: registryService}
	tokenService := &toksvc.Service{DB: db, Auth: authService, Recorder: recorder}
	marketService := &mktsvc.Service{DB: db, Auth: authService, Recorder: recorder, Registry: registryService, Tokens: tokenService}
	txService := &txsvc.Service{DB: db}

	// Health
	hs := &healthsvc.Service{DB: &gormDBPinger{db: db}, Started: time.Now()}
	if rdb != nil {
		hs.Redis = healthsvc.PingerFunc(func() error {
			return rdb.Ping(context.Background()).Err()
		})
	}
	hh := &healthhandler.Handlers{Service: hs}
	app.Get("/health/json", hh.JSON)

	// Actors
	ah := &actorhandler.Handlers{Service: authService}
	actorGroup := app.Group("/api/v1/actors")
	actorGroup.Post("/register", ah.Register)
	actorGroup.Get("/:address", ah.View)

	// Credit registry
	rh := &reghandler.Handlers{Service: registryService}
	regGroup := app.Group("/api/v1/registry")
	regGroup.Post("/initialize", rh.Initialize)
	regGroup.Post("/issue", rh.IssueCredit)
	regGroup.Post("/update-verification", rh.UpdateVerification)
	regGroup.Post("/transfer", rh.Transfer)
	regGroup.Post("/retire", rh.RetireCredit)
	regGroup.Get("/credits/:id", rh.GetCredit)
	regGroup.Get("/credits/:id/owner", rh.GetOwner)
	regGroup.Get("/credits/:id/verified", rh.IsVerified)
	regGroup.Get("/retirements", rh.ViewRetirements)
	regGroup.Get("/retirements/:id", rh.ViewRetirement)

	// Verification workflow
	vh := &verhandler.Handlers{Service: verificationService}
	verGroup := app.Group("/api/v1/verification")
	verGroup.Post("/initialize", vh.Initialize)
	verGroup.Post("/verifiers", vh.AddVerifier)
	verGroup.Delete("/verifiers", vh.RemoveVerifier)
	verGroup.Post("/submit", vh.Submit)
	verGroup.Post("/assign", vh.Assign)
	verGroup.Post("/approve", vh.Approve)
	verGroup.Post("/reject", vh.Reject)
	verGroup.Get("/requests/:credit_id", vh.GetRequest)
	verGroup.Get("/verifiers", vh.GetVerifiers)
	verGroup.Get("/verifiers/:address", vh.IsVerifier)

	// Marketplace
	mh := &mkthandler.Handlers{Service: marketService}
	mktGroup := app.Group("/api/v1/market")
	mktGroup.Post("/initialize", mh.Initialize)
	mktGroup.Post("/listings", mh.CreateListing)
	mktGroup.Get("/listings", mh.GetActiveListings)
	mktGroup.Get("/listings/:id", mh.GetListing)
	mktGroup.Post("/listings/:id/buy", mh.BuyCredit)
	mktGroup.Post("/listings/:id/cancel", mh.CancelListing)
	mktGroup.Post("/listings/:id/price", mh.UpdatePrice)
	mktGroup.Post("/fee", mh.UpdateFee)
	mktGroup.Get("/fee", mh.GetFee)

	// Token ledger
	th := &tokhandler.Handlers{Service: tokenService}
	tokGroup := app.Group("/api/v1/token")
	tokGroup.Post("/initialize", th.Initialize)
	tokGroup.Post("/mint", th.Mint)
	tokGroup.Post("/transfer", th.Transfer)
	tokGroup.Get("/balance/:address", th.Balance)

	// Journals
	txh := &txhandler.Handlers{Service: txService}
	txGroup := app.Group("/api/v1/transactions")
	txGroup.Get("/credit-transfers", txh.GetCreditTransfers)
	txGroup.Get("/token-transfers", txh.GetTokenTransfers)

	eh := &eventhandler.Handlers{Recorder: recorder}
	app.Get("/api/v1/events", eh.List)

	return app, db, rdb, nil
}
