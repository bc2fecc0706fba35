package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/wildtrek/tours/internal/http/handlers"
	"github.com/wildtrek/tours/internal/http/middleware"
	"github.com/wildtrek/tours/internal/http/response"
	"github.com/wildtrek/tours/internal/platform/images"
	"github.com/wildtrek/tours/internal/platform/mailer"
	"github.com/wildtrek/tours/internal/platform/password"
	"github.com/wildtrek/tours/internal/platform/token"
	"github.com/wildtrek/tours/internal/repo/postgres"
	"github.com/wildtrek/tours/internal/service"
	"github.com/wildtrek/tours/pkg/config"
	"github.com/wildtrek/tours/pkg/database"
	"github.com/wildtrek/tours/pkg/events"
	"github.com/wildtrek/tours/pkg/logger"
	"github.com/wildtrek/tours/web"
)

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	response.SetProduction(cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	var bus events.EventBus
	if nb, err := events.NewNATSEventBus(cfg.NATS.URL); err != nil {
		// Events are best-effort; the API works without the bus.
		logger.Warn("nats unavailable, events disabled", "error", err)
	} else {
		bus = nb
		defer nb.Close()
	}

	mail := pickMailer(cfg)

	usersRepo := postgres.NewUsersRepo(pool)
	toursRepo := postgres.NewToursRepo(pool)
	reviewsRepo := postgres.NewReviewsRepo(pool)
	bookingsRepo := postgres.NewBookingsRepo(pool)

	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	hasher := password.NewHasher(cfg.Auth.PasswordAlgo, cfg.Auth.BcryptCost)
	resizer := images.NewResizer(cfg.Uploads.Dir)

	var pub events.Publisher
	if bus != nil {
		pub = bus
	}
	authSvc := service.NewAuth(usersRepo, hasher, tokens, mail, pub, cfg.Auth.ResetTokenTTL)
	reviewsSvc := service.NewReviews(reviewsRepo, toursRepo, pub)
	bookingsSvc := service.NewBookings(bookingsRepo, cfg.Stripe.SecretKey,
		cfg.Stripe.WebhookSecret, cfg.Server.PublicURL, pub)

	if bus != nil {
		if err := subscribeNotifications(bus, mail); err != nil {
			logger.Warn("notification subscriber failed", "error", err)
		}
	}

	viewsHandler, err := handlers.NewViewsHandler(web.Templates, toursRepo, bookingsRepo)
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(rdb, middleware.RateLimitConfig{
		Requests: 100,
		Window:   time.Hour,
	})

	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:            middleware.NewAuthenticator(tokens, usersRepo),
		RateLimiter:     limiter,
		AuthHandler:     handlers.NewAuthHandler(authSvc, cfg.Server.PublicURL, cfg.IsProduction()),
		UsersHandler:    handlers.NewUsersHandler(usersRepo, resizer),
		ToursHandler:    handlers.NewToursHandler(toursRepo, resizer),
		ReviewsHandler:  handlers.NewReviewsHandler(reviewsRepo, reviewsSvc),
		BookingsHandler: handlers.NewBookingsHandler(bookingsRepo, toursRepo, bookingsSvc),
		ViewsHandler:    viewsHandler,
		UploadsDir:      cfg.Uploads.Dir,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      http.MaxBytesHandler(router, cfg.Uploads.MaxBodyBytes),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "port", cfg.Server.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func pickMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, "Wildtrek", cfg.Email.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort,
			cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}
}

// subscribeNotifications delivers queued notification events over email, so
// request handlers never wait on SMTP.
func subscribeNotifications(bus events.Subscriber, mail mailer.Service) error {
	return bus.QueueSubscribe(events.NotifySend, "mailers", func(msg *events.Message) {
		var ev events.NotificationEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("malformed notification event", "error", err)
			return
		}
		var err error
		switch ev.Type {
		case "welcome":
			err = mail.SendWelcome(ev.Recipient, ev.Name, ev.URL)
		default:
			logger.Warn("unknown notification type", "type", ev.Type)
			return
		}
		if err != nil {
			logger.Error("failed to send notification", "type", ev.Type, "error", err)
		}
	})
}
