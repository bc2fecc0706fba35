package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/wildtrek/tours/internal/api/apierror"
	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/internal/http/middleware"
	"github.com/wildtrek/tours/internal/http/response"
)

// RouterDeps is everything the HTTP surface needs, built in main.
type RouterDeps struct {
	Auth        *middleware.Authenticator
	RateLimiter *middleware.RateLimiter

	AuthHandler     *AuthHandler
	UsersHandler    *UsersHandler
	ToursHandler    *ToursHandler
	ReviewsHandler  *ReviewsHandler
	BookingsHandler *BookingsHandler
	ViewsHandler    *ViewsHandler

	UploadsDir string
}

// NewRouter assembles the full route tree: JSON API under /api/v1, the
// Stripe webhook, static assets and the rendered pages.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	staff := middleware.RequireRoles(domain.RoleAdmin, domain.RoleLeadGuide)
	adminOnly := middleware.RequireRoles(domain.RoleAdmin)

	r.Route("/api/v1", func(api chi.Router) {
		if deps.RateLimiter != nil {
			api.Use(deps.RateLimiter.Middleware())
		}

		api.Route("/users", func(users chi.Router) {
			users.Post("/signup", deps.AuthHandler.Signup)
			users.Post("/login", deps.AuthHandler.Login)
			users.Get("/logout", deps.AuthHandler.Logout)
			users.Post("/forgotPassword", deps.AuthHandler.ForgotPassword)
			users.Patch("/resetPassword/{token}", deps.AuthHandler.ResetPassword)

			users.Group(func(me chi.Router) {
				me.Use(deps.Auth.RequireAuth)
				me.Get("/me", deps.UsersHandler.Me)
				me.Patch("/updateMe", deps.UsersHandler.UpdateMe)
				me.Delete("/deleteMe", deps.UsersHandler.DeleteMe)
				me.Patch("/updateMyPassword", deps.AuthHandler.UpdateMyPassword)
			})

			users.Group(func(admin chi.Router) {
				admin.Use(deps.Auth.RequireAuth, adminOnly)
				deps.UsersHandler.Mount(admin)
			})
		})

		api.Route("/tours", func(tours chi.Router) {
			tours.Get("/", deps.ToursHandler.List)
			tours.Get("/top-5-cheap", deps.ToursHandler.TopCheap)
			tours.Get("/stats", deps.ToursHandler.Stats)
			tours.Get("/tours-within/{distance}/center/{latlng}/unit/{unit}", deps.ToursHandler.Within)
			tours.Get("/distances/{latlng}/unit/{unit}", deps.ToursHandler.Distances)
			tours.Get("/{id}", deps.ToursHandler.GetOne)

			tours.With(deps.Auth.RequireAuth,
				middleware.RequireRoles(domain.RoleAdmin, domain.RoleLeadGuide, domain.RoleGuide)).
				Get("/monthly-plan/{year}", deps.ToursHandler.MonthlyPlan)

			tours.Group(func(mut chi.Router) {
				mut.Use(deps.Auth.RequireAuth, staff)
				mut.Post("/", deps.ToursHandler.Create)
				mut.Patch("/{id}", deps.ToursHandler.UpdateOne)
				mut.Patch("/{id}/images", deps.ToursHandler.UploadImages)
				mut.Delete("/{id}", deps.ToursHandler.DeleteOne)
			})

			// Nested reviews share the tour id from the URL.
			tours.Route("/{tourId}/reviews", func(nested chi.Router) {
				nested.Get("/", deps.ReviewsHandler.List)
				nested.With(deps.Auth.RequireAuth, middleware.RequireRoles(domain.RoleUser)).
					Post("/", deps.ReviewsHandler.Create)
			})
		})

		api.Route("/reviews", func(reviews chi.Router) {
			reviews.Get("/", deps.ReviewsHandler.List)
			reviews.Get("/{id}", deps.ReviewsHandler.GetOne)
			reviews.With(deps.Auth.RequireAuth, middleware.RequireRoles(domain.RoleUser)).
				Post("/", deps.ReviewsHandler.Create)
			reviews.Group(func(mut chi.Router) {
				mut.Use(deps.Auth.RequireAuth, middleware.RequireRoles(domain.RoleUser, domain.RoleAdmin))
				mut.Patch("/{id}", deps.ReviewsHandler.UpdateOne)
				mut.Delete("/{id}", deps.ReviewsHandler.DeleteOne)
			})
		})

		api.Route("/bookings", func(bookings chi.Router) {
			bookings.Use(deps.Auth.RequireAuth)
			bookings.Post("/checkout-session/{id}", deps.BookingsHandler.CheckoutSession)
			bookings.Get("/my", deps.BookingsHandler.MyBookings)
			bookings.Group(func(admin chi.Router) {
				admin.Use(staff)
				deps.BookingsHandler.Mount(admin)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.Error(w, req, apierror.NotFound(
			fmt.Sprintf("can't find %s on this server", req.URL.Path)))
	})

	// Stripe calls this directly; signature verification is the auth.
	r.Post("/webhook-checkout", deps.BookingsHandler.Webhook)

	if deps.UploadsDir != "" {
		fileServer := http.StripPrefix("/public/img/", http.FileServer(http.Dir(deps.UploadsDir)))
		r.Get("/public/img/*", fileServer.ServeHTTP)
	}

	if deps.ViewsHandler != nil {
		r.Group(func(views chi.Router) {
			views.Use(deps.Auth.OptionalAuth)
			views.Get("/", deps.ViewsHandler.Overview)
			views.Get("/tour/{slug}", deps.ViewsHandler.Tour)
			views.Get("/login", deps.ViewsHandler.Login)
		})
		r.Group(func(views chi.Router) {
			views.Use(deps.Auth.RequireAuth)
			views.Get("/me", deps.ViewsHandler.Account)
			views.Get("/my-tours", deps.ViewsHandler.MyTours)
		})
	}

	return r
}
