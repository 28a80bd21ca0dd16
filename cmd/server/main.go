package main

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/prompttester/api/internal/auth"
	"github.com/prompttester/api/internal/config"
	"github.com/prompttester/api/internal/db"
	"github.com/prompttester/api/internal/logging"
	"github.com/prompttester/api/internal/openai"
	"github.com/prompttester/api/internal/proxy"
	"github.com/prompttester/api/internal/ratelimit"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logging.Setup(cfg.LogFile)

	// Token verification: local when the project JWT secret is
	// available, otherwise a round-trip to Supabase per request.
	var authenticator auth.Authenticator
	if cfg.SupabaseJWTSecret != "" {
		authenticator = auth.NewJWTAuthenticator(cfg.SupabaseJWTSecret)
	} else {
		authenticator = auth.NewSupabaseAuthenticator(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	}

	// Initialize rate limiter
	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		redisLimiter, err := ratelimit.NewRedisLimiter(cfg.RedisURL, cfg.RateLimitRequests, cfg.RateLimitWindow)
		if err != nil {
			log.Fatal("Failed to initialize rate limiter: ", err)
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	// Optional request-log sink
	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = db.NewDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database: ", err)
		}
		defer database.Close()
	}

	gateway := openai.NewClient(cfg.OpenAIBaseURL)

	// Initialize router
	router := mux.NewRouter()

	authMiddleware := auth.NewMiddleware(authenticator)
	handler := proxy.NewHandler(limiter, gateway, database)

	// Public routes
	router.HandleFunc("/health", proxy.Health).Methods("GET")

	// Protected routes
	router.Handle("/invoke_model",
		authMiddleware.Authenticate(http.HandlerFunc(handler.InvokeModel)),
	).Methods("POST")
	if database != nil {
		router.Handle("/usage",
			authMiddleware.Authenticate(http.HandlerFunc(handler.Usage)),
		).Methods("GET")
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{cfg.FrontendOrigin}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowCredentials(),
	)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, cors(router)); err != nil {
		log.Fatal("Server failed: ", err)
	}
}
