package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"askbox/internal/auth"
	"askbox/internal/handler"
	"askbox/internal/hub"
	"askbox/internal/middleware"
	"askbox/internal/store"
)

// Precondition is the admission check a route runs before its handler.
type Precondition int

const (
	Public Precondition = iota
	Admin
	Challenge
)

func (p Precondition) String() string {
	switch p {
	case Admin:
		return "admin"
	case Challenge:
		return "challenge"
	default:
		return "none"
	}
}

type Route struct {
	Method       string
	Path         string
	Precondition Precondition
	Handler      gin.HandlerFunc
}

type Deps struct {
	Store     store.Store
	Verifier  middleware.ChallengeVerifier
	AdminGate *auth.AdminGate
	// Hub defaults to a fresh hub.
	Hub    *hub.Hub
	Logger *slog.Logger
	Now    func() time.Time
}

// Routes is the full route table.
func Routes(deps Deps) []Route {
	if deps.Hub == nil {
		deps.Hub = hub.New()
	}
	askHandler := &handler.AskHandler{Store: deps.Store, Feed: deps.Hub}
	askeeHandler := &handler.AskeeHandler{Store: deps.Store}
	adminHandler := &handler.AdminHandler{Store: deps.Store, Now: deps.Now}
	feedHandler := &handler.FeedHandler{Hub: deps.Hub}
	healthHandler := &handler.HealthHandler{}

	return []Route{
		{http.MethodGet, "/health", Public, healthHandler.Check},

		{http.MethodPost, "/api/ask", Challenge, askHandler.Create},
		{http.MethodGet, "/api/ask/:id", Admin, askHandler.Load},
		{http.MethodGet, "/api/askee", Public, askeeHandler.List},
		{http.MethodGet, "/api/askee/:id", Public, askeeHandler.Load},

		{http.MethodGet, "/api/admin/ask/:id", Admin, askHandler.Load},
		{http.MethodPost, "/api/admin/add-askee", Admin, adminHandler.AddAskee},
		{http.MethodPost, "/api/admin/reload", Admin, adminHandler.Reload},
		{http.MethodGet, "/api/admin/askee/:id/asks", Admin, adminHandler.AsksInRange},
		{http.MethodGet, "/api/admin/feed", Admin, feedHandler.Serve},
	}
}

var (
	ErrNoStore     = errors.New("server: nil Store")
	ErrNoVerifier  = errors.New("server: nil Verifier")
	ErrNoAdminGate = errors.New("server: nil AdminGate")
)

// NewRouter wires the route table. Store, Verifier and AdminGate are required.
func NewRouter(deps Deps) (*gin.Engine, error) {
	var errs []error
	if deps.Store == nil {
		errs = append(errs, ErrNoStore)
	}
	if deps.Verifier == nil {
		errs = append(errs, ErrNoVerifier)
	}
	if deps.AdminGate == nil {
		errs = append(errs, ErrNoAdminGate)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if deps.Hub == nil {
		deps.Hub = hub.New()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS())
	r.NoRoute(middleware.NotFound)

	requireAdmin := middleware.RequireAdmin(deps.AdminGate)
	requireChallenge := middleware.RequireChallenge(deps.Verifier)

	for _, route := range Routes(deps) {
		chain := make([]gin.HandlerFunc, 0, 2)
		switch route.Precondition {
		case Admin:
			chain = append(chain, requireAdmin)
		case Challenge:
			chain = append(chain, requireChallenge)
		}
		chain = append(chain, route.Handler)
		r.Handle(route.Method, route.Path, chain...)
	}
	return r, nil
}
