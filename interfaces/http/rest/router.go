package rest

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"esgss-backend/application/commands"
	"esgss-backend/application/commands/bus"
	querybus "esgss-backend/application/queries/bus"
	"esgss-backend/application/services"
	"esgss-backend/interfaces/http/rest/handlers"
	"esgss-backend/interfaces/http/rest/middleware"
	v1 "esgss-backend/interfaces/http/rest/v1"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	purification *services.PurificationService
	acquire      *commands.AcquireCardHandler
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	purification *services.PurificationService,
	acquire *commands.AcquireCardHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus:   commandBus,
		queryBus:     queryBus,
		purification: purification,
		acquire:      acquire,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(versionMiddleware)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://*.esgss.io"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// API v1 routes (legacy, read-only; removed endpoints redirect to v2)
	router.Mount("/api/v1", v1.NewRouter(rt.queryBus, rt.logger))

	// API v2 routes (current)
	router.Route("/api/v2", func(r chi.Router) {
		r.Use(middleware.Authenticate())

		// Registry node endpoints
		r.Route("/nodes", func(r chi.Router) {
			nodeHandler := handlers.NewNodeHandler(rt.commandBus, rt.queryBus, rt.logger)
			r.Post("/", nodeHandler.RegisterNode)
			r.Get("/", nodeHandler.ListNodes)
			r.Get("/heatmap", nodeHandler.GetHeatMap)
			r.Get("/{entityID}", nodeHandler.GetNode)
			r.Post("/{entityID}/interactions", nodeHandler.RecordInteraction)
			r.Post("/{entityID}/agent-update", nodeHandler.AgentUpdate)
		})

		// Registry maintenance
		r.Route("/registry", func(r chi.Router) {
			nodeHandler := handlers.NewNodeHandler(rt.commandBus, rt.queryBus, rt.logger)
			r.Post("/reset", nodeHandler.ResetRegistry)
		})

		// Glossary card endpoints
		r.Route("/cards", func(r chi.Router) {
			cardHandler := handlers.NewCardHandler(rt.commandBus, rt.queryBus, rt.acquire, rt.logger)
			r.Post("/", cardHandler.AcquireCard)
			r.Get("/", cardHandler.ListCards)
			r.Get("/{cardID}", cardHandler.GetCard)
			r.Delete("/{cardID}", cardHandler.DeleteCard)
			r.Post("/{cardID}/reviews", cardHandler.ReviewCard)
		})

		// Purification session endpoints
		r.Route("/purification", func(r chi.Router) {
			purificationHandler := handlers.NewPurificationHandler(rt.purification, rt.logger)
			r.Get("/", purificationHandler.GetSession)
			r.Delete("/", purificationHandler.Close)
			r.Post("/quiz", purificationHandler.BeginQuiz)
			r.Post("/answer", purificationHandler.SubmitAnswer)
			r.Post("/retry", purificationHandler.Retry)
			r.Post("/{cardID}", purificationHandler.Start)
		})

		// Player progression
		r.Get("/profile", handlers.NewCardHandler(rt.commandBus, rt.queryBus, rt.acquire, rt.logger).GetProfile)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := "v2"
		if strings.Contains(r.URL.Path, "/api/v1") {
			version = "v1"
		}

		w.Header().Set("X-API-Version", version)
		w.Header().Set("X-API-Latest", "v2")
		w.Header().Set("X-API-Deprecated", "false")

		if version == "v1" {
			w.Header().Set("X-API-Deprecated", "true")
			w.Header().Set("X-API-Sunset-Date", "2026-03-01")
		}

		next.ServeHTTP(w, r)
	})
}
