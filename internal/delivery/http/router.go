package http

import (
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"pickupsports/internal/delivery/http/controllers"
	"pickupsports/internal/delivery/http/helpers"
	"pickupsports/internal/delivery/http/middleware"
	"pickupsports/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	eventController *controllers.EventController,
	authController *controllers.AuthController,
	userController *controllers.UserController,
	verifier domain.TokenVerifier,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier)

	// Events
	mux.HandleFunc("POST /api/events", auth(eventController.CreateEvent))
	mux.HandleFunc("GET /api/events", auth(eventController.ListEvents))
	mux.HandleFunc("POST /api/events/users/{userID}", auth(eventController.CheckIn))
	mux.HandleFunc("POST /api/events/users/{userID}/{$}", auth(eventController.CheckIn))
	mux.HandleFunc("DELETE /api/events/users/{userID}", auth(eventController.CheckOut))
	mux.HandleFunc("DELETE /api/events/users/{userID}/{$}", auth(eventController.CheckOut))

	// Users
	mux.HandleFunc("POST /api/users/signup", authController.SignUp)
	mux.HandleFunc("POST /api/users/signin", authController.SignIn)
	mux.HandleFunc("GET /api/users/me", auth(userController.GetMe))
	mux.HandleFunc("GET /api/users/me/events", auth(userController.ListMyEvents))

	mux.HandleFunc("GET /health", health)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// Wrap applies the global middleware stack: panic recovery, request ids, access log and CORS.
func Wrap(logger *slog.Logger, allowedOrigins []string, next http.Handler) http.Handler {
	h := middleware.CORS(allowedOrigins, next)
	h = middleware.LoggingMiddleware(logger, h)
	h = chimw.RequestID(h)
	return chimw.Recoverer(h)
}

func health(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
