package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/hotel-room-booking/internal/config"
	"github.com/iliyamo/hotel-room-booking/internal/database"
	"github.com/iliyamo/hotel-room-booking/internal/handler"
	"github.com/iliyamo/hotel-room-booking/internal/middleware"
	"github.com/iliyamo/hotel-room-booking/internal/queue"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/router"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	gateway, err := service.NewStripeGateway(cfg.StripeSecretKey)
	if err != nil {
		log.Fatalf("stripe: %v", err)
	}

	// Repositories.
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	roomRepo := repository.NewRoomRepo(db)
	roomTypeRepo := repository.NewRoomTypeRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	availabilityRepo := repository.NewAvailabilityRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)

	// Services.
	catalog := service.NewRoomCatalog(roomRepo, roomTypeRepo, availabilityRepo)
	bookings := service.NewBookingService(reservationRepo, catalog, cfg.HoldTTLMin)
	billing := service.NewBilling(gateway, paymentRepo, userRepo, reservationRepo, roomRepo)

	// Handlers.
	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	oauthHandler := handler.NewOAuthHandler(cfg, userRepo, authHandler)
	profileHandler := handler.NewProfileHandler(userRepo)
	roomHandler := handler.NewRoomHandler(roomRepo, catalog)
	roomTypeHandler := handler.NewRoomTypeHandler(roomTypeRepo)
	reservationHandler := handler.NewReservationHandler(bookings, reservationRepo)
	availabilityHandler := handler.NewAvailabilityHandler(availabilityRepo)
	paymentHandler := handler.NewPaymentHandler(cfg, billing, paymentRepo)
	dashboardHandler := handler.NewDashboardHandler(roomRepo, availabilityRepo, reservationRepo, paymentRepo)
	userAdminHandler := handler.NewUserAdminHandler(userRepo)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, oauthHandler, cfg.JWTSecret, limiter)
	router.RegisterPublic(e, roomTypeHandler, roomHandler, paymentHandler, cache)
	router.RegisterGuest(e, profileHandler, reservationHandler, availabilityHandler, paymentHandler, cfg.JWTSecret)
	router.RegisterStaff(e, roomHandler, roomTypeHandler, reservationHandler, userAdminHandler, dashboardHandler, paymentHandler, cfg.JWTSecret)

	// Background work: the confirmation-event consumer and the sweeper
	// that releases dates held by reservations whose payment never
	// arrived.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("reservation consumer stopped: %v", err)
		}
	}()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bookings.RunHoldSweeper(ctx, time.Minute)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
