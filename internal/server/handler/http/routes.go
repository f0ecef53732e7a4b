package http

import (
	"net/http"

	"github.com/atinyakov/GophVault/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the vault API
// under /api.
//
// Routes:
//
//	POST   /api/register               → authHandler.Register
//	POST   /api/login                  → authHandler.Login
//	GET    /api/share/{id}             → shareHandler.Read
//	GET    /api/share-download/{id}    → shareHandler.Download
//
// and, behind SessionAuth:
//
//	POST   /api/logout                 → authHandler.Logout
//	GET    /api/me                     → authHandler.Me
//	POST   /api/upload                 → fileHandler.Upload
//	GET    /api/files                  → fileHandler.List
//	GET    /api/read/{id}              → fileHandler.Read
//	GET    /api/download/{id}          → fileHandler.Download
//	DELETE /api/delete/{id}            → fileHandler.Delete
//	POST   /api/share/{id}             → fileHandler.Share
//	GET    /api/shares/{id}            → fileHandler.ListShares
//	DELETE /api/share/{id}             → fileHandler.RevokeShare
//
// Middleware chain (applied in order):
//  1. RequestID, RealIP, Recoverer
//  2. WithRequestLogging(logger)
//  3. SessionAuth, on the protected group only
func NewRouter(
	authHandler *AuthHandler,
	fileHandler *FileHandler,
	shareHandler *ShareHandler,
	sessions middleware.SessionResolver,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})
		r.Get("/share/{id}", shareHandler.Read)
		r.Get("/share-download/{id}", shareHandler.Download)

		// Protected group: requires a live session
		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(sessions, logger))

			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)

			r.Post("/upload", fileHandler.Upload)
			r.Get("/files", fileHandler.List)
			r.Get("/read/{id}", fileHandler.Read)
			r.Get("/download/{id}", fileHandler.Download)
			r.Delete("/delete/{id}", fileHandler.Delete)

			r.Post("/share/{id}", fileHandler.Share)
			r.Get("/shares/{id}", fileHandler.ListShares)
			r.Delete("/share/{id}", fileHandler.RevokeShare)
		})
	})

	return r
}
