package routes

import (
	"context"
	"net/http"
	"time"

	"recipehub/auth"
	"recipehub/middleware"
	"recipehub/payments"
	"recipehub/ratelim"
	"recipehub/recipes"
	"recipehub/users"
	"recipehub/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// Deps carries everything the routes are built from. Payments and
// Idempotency are nil when checkout is disabled.
type Deps struct {
	Auth        *middleware.Auth
	Limiter     *ratelim.RateLimiter
	Users       *users.Handler
	Recipes     *recipes.Handler
	Login       *auth.Handler
	Payments    *payments.Handler
	Idempotency *payments.Idempotency
	UploadDir   string
	Health      map[string]Pinger
}

// route wraps h with metrics under its pattern.
func route(router *httprouter.Router, method, path string, h httprouter.Handle) {
	router.Handle(method, path, middleware.Instrument(path, h))
}

func New(d Deps) *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, http.StatusNotFound, "Route not found")
	})

	AddUtilityRoutes(router, d)
	AddAuthRoutes(router, d)
	AddUserRoutes(router, d)
	AddRecipeRoutes(router, d)
	AddPayRoutes(router, d)
	return router
}

func AddUtilityRoutes(router *httprouter.Router, d Deps) {
	router.GET("/health", health(d.Health))
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	router.ServeFiles("/static/uploads/*filepath", http.Dir(d.UploadDir))
}

func AddAuthRoutes(router *httprouter.Router, d Deps) {
	route(router, http.MethodPost, "/auth/login", d.Limiter.Limit(d.Login.Login))
	route(router, http.MethodPost, "/auth/logout",
		middleware.Chain(d.Limiter.Limit, d.Auth.Authenticate)(d.Login.Logout))
}

func AddUserRoutes(router *httprouter.Router, d Deps) {
	write := middleware.Chain(d.Limiter.Limit, d.Auth.Authenticate)

	route(router, http.MethodPost, "/users", d.Limiter.Limit(d.Users.Register))
	route(router, http.MethodGet, "/users", d.Users.List)
	route(router, http.MethodPost, "/users/follow", write(d.Users.Follow))
	route(router, http.MethodPost, "/users/unfollow", write(d.Users.Unfollow))
	route(router, http.MethodGet, "/users/:id", d.Users.Get)
	route(router, http.MethodPut, "/users/:id", write(d.Users.Update))
	route(router, http.MethodDelete, "/users/:id", write(d.Users.Delete))
	route(router, http.MethodGet, "/users/:id/recipes", d.Recipes.ListByUser)
	route(router, http.MethodGet, "/users/:id/activity", d.Users.Activity)
	route(router, http.MethodPatch, "/users/:id/block",
		middleware.Chain(d.Limiter.Limit, d.Auth.Authenticate, middleware.RequireRoles("admin"))(d.Users.Block))
}

func AddRecipeRoutes(router *httprouter.Router, d Deps) {
	write := middleware.Chain(d.Limiter.Limit, d.Auth.Authenticate)

	route(router, http.MethodPost, "/recipes", write(d.Recipes.Create))
	route(router, http.MethodGet, "/recipes", d.Recipes.List)
	route(router, http.MethodGet, "/recipes/:id", d.Recipes.Get)
	route(router, http.MethodPut, "/recipes/:id", write(d.Recipes.Update))
	route(router, http.MethodDelete, "/recipes/:id", write(d.Recipes.Delete))
	route(router, http.MethodPost, "/recipes/:id/upvote", write(d.Recipes.Upvote))
	route(router, http.MethodPost, "/recipes/:id/downvote", write(d.Recipes.Downvote))
	route(router, http.MethodPost, "/recipes/:id/rate", write(d.Recipes.Rate))
	route(router, http.MethodPost, "/recipes/:id/comment", write(d.Recipes.AddComment))
	route(router, http.MethodPut, "/recipes/:id/comment/:commentId", write(d.Recipes.EditComment))
	route(router, http.MethodDelete, "/recipes/:id/comment/:commentId", write(d.Recipes.DeleteComment))
	route(router, http.MethodPost, "/recipes/:id/image", write(d.Recipes.UploadImage))
	route(router, http.MethodGet, "/recipes/:id/pdf", d.Recipes.ExportPDF)
	route(router, http.MethodGet, "/recipes/:id/qr", d.Recipes.QRCode)
}

// AddPayRoutes registers checkout only when payments are configured.
func AddPayRoutes(router *httprouter.Router, d Deps) {
	if d.Payments == nil {
		return
	}
	mws := []middleware.Middleware{d.Limiter.Limit, d.Auth.Authenticate}
	if d.Idempotency != nil {
		mws = append(mws, d.Idempotency.Wrap)
	}
	route(router, http.MethodPost, "/payments/checkout", middleware.Chain(mws...)(d.Payments.Checkout))
}

func health(checks map[string]Pinger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		message := "ok"
		if status != http.StatusOK {
			message = "degraded"
		}
		utils.SendResponse(w, status, results, message)
	}
}
