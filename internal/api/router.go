package api

import (
	"database/sql"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/erazemk/achados/internal/model"
)

// Options tunes the router. The zero value is usable.
type Options struct {
	// LoginRate and LoginBurst configure per-IP login throttling.
	LoginRate  rate.Limit
	LoginBurst int
	// Now overrides the clock used to reject future found/lost dates.
	Now func() time.Time
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, opts Options) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{
		DB:        db,
		JWTSecret: jwtSecret,
		limiter:   newLoginLimiter(opts.LoginRate, opts.LoginBurst),
	}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db, Now: opts.Now}
	categoriesHandler := &CategoriesHandler{DB: db}
	locationsHandler := &LocationsHandler{DB: db}
	healthHandler := &HealthHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/healthz", healthHandler.Check)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Categories and locations: read (all roles), write (manager+).
	mux.Handle("GET /api/categories", authMW(http.HandlerFunc(categoriesHandler.List)))
	mux.Handle("POST /api/categories", authMW(requireManager(http.HandlerFunc(categoriesHandler.Create))))
	mux.Handle("GET /api/categories/{id}", authMW(http.HandlerFunc(categoriesHandler.Get)))
	mux.Handle("PUT /api/categories/{id}", authMW(requireManager(http.HandlerFunc(categoriesHandler.Update))))
	mux.Handle("DELETE /api/categories/{id}", authMW(requireManager(http.HandlerFunc(categoriesHandler.Delete))))

	mux.Handle("GET /api/locations", authMW(http.HandlerFunc(locationsHandler.List)))
	mux.Handle("POST /api/locations", authMW(requireManager(http.HandlerFunc(locationsHandler.Create))))
	mux.Handle("GET /api/locations/{id}", authMW(http.HandlerFunc(locationsHandler.Get)))
	mux.Handle("PUT /api/locations/{id}", authMW(requireManager(http.HandlerFunc(locationsHandler.Update))))
	mux.Handle("DELETE /api/locations/{id}", authMW(requireManager(http.HandlerFunc(locationsHandler.Delete))))

	// Items: any user reports; owners and managers change.
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items/export", authMW(requireManager(http.HandlerFunc(itemsHandler.Export))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("PATCH /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Patch)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("PUT /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.UploadImage)))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))

	return mux
}
