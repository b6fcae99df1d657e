package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/gHajnal/OppaTalent/internal/lti"
	"github.com/gHajnal/OppaTalent/internal/service"
	"github.com/gHajnal/OppaTalent/internal/transport/rest/handler"
)

// Container holds all dependencies for the router
type Container struct {
	SessionService   *service.SessionService
	GeneratorService *service.GeneratorService
	DocumentService  *service.DocumentService
	AnalyticsService *service.AnalyticsService
	AdaptiveService  *service.AdaptiveService
	Evaluator        service.Evaluator
	LTIClient        *lti.Client
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(c.SessionService)
	quizHandler := handler.NewQuizHandler(c.GeneratorService, c.AdaptiveService, c.Evaluator)
	documentHandler := handler.NewDocumentHandler(c.DocumentService)
	analyticsHandler := handler.NewAnalyticsHandler(c.AnalyticsService)
	ltiHandler := handler.NewLTIHandler(c.LTIClient)

	r.Use(corsMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/upload", documentHandler.Upload).Methods("POST", "OPTIONS")
	api.HandleFunc("/generate-quiz", quizHandler.Generate).Methods("POST", "OPTIONS")
	api.HandleFunc("/validate-answer", quizHandler.Validate).Methods("POST", "OPTIONS")
	api.HandleFunc("/ai-usage", quizHandler.Usage).Methods("GET", "OPTIONS")

	api.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/current", sessionHandler.Current).Methods("GET", "OPTIONS")
	api.HandleFunc("/sessions/{id}/answers", sessionHandler.SubmitAnswer).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/advance", sessionHandler.Advance).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/retreat", sessionHandler.Retreat).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/finalize", sessionHandler.Finalize).Methods("POST", "OPTIONS")

	api.HandleFunc("/reports/{sessionID}", analyticsHandler.GetReport).Methods("GET", "OPTIONS")
	api.HandleFunc("/analytics/users/{userID}", analyticsHandler.GetUserAnalytics).Methods("GET", "OPTIONS")

	api.HandleFunc("/lti/launch", ltiHandler.Launch).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, X-User-ID"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
