package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rally-backend/internal/handlers"
	"rally-backend/internal/middleware"
	"rally-backend/internal/websocket"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health      *handlers.HealthHandler
	Timer       *handlers.TimerHandler
	Cron        *handlers.CronHandler
	Leaderboard *handlers.LeaderboardHandler
	Friends     *handlers.FriendHandler
	Classes     *handlers.ClassHandler
	Locations   *handlers.LocationHandler
	Chat        *handlers.ChatHandler
	Users       *handlers.UserHandler
	Admin       *handlers.AdminHandler
}

type Options struct {
	Logger      *slog.Logger
	JWTAuth     *middleware.JWTAuth
	CronSecret  string
	AdminSecret string
	FrontendURL string
}

func New(opts Options, h Handlers, wsHub *websocket.Hub) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(opts.FrontendURL))

	r.Get("/health", h.Health.Check)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {

		// ──── Cron Routes (static secret) ────
		r.Route("/cron", func(r chi.Router) {
			r.Use(middleware.StaticBearer(opts.CronSecret))
			r.Get("/cleanup-stale-timers", h.Cron.CleanupStaleTimers)
			r.Get("/midnight-reset", h.Cron.MidnightReset)
		})

		// ──── Admin Routes (static secret) ────
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.StaticBearer(opts.AdminSecret))
			r.Get("/stats", h.Admin.Stats)
			r.Post("/classes", h.Admin.CreateClasses)
			r.Post("/locations", h.Admin.CreateLocations)
		})

		// ──── Timer Routes ────
		r.Route("/timer", func(r chi.Router) {
			r.Use(opts.JWTAuth.Middleware)
			r.Post("/start", h.Timer.Start)
			r.Post("/pause", h.Timer.Pause)
			r.Post("/heartbeat", h.Timer.Heartbeat)
			r.Get("/status", h.Timer.Status)
			r.Post("/cleanup", h.Cron.UserCleanup)
		})

		// ──── Leaderboard Routes ────
		r.Route("/leaderboards", func(r chi.Router) {
			r.Use(opts.JWTAuth.Middleware)
			r.Get("/school", h.Leaderboard.School)
			r.Get("/location/{id}", h.Leaderboard.Location)
		})

		// ──── Friend Routes ────
		r.Route("/friends", func(r chi.Router) {
			r.Use(opts.JWTAuth.Middleware)
			r.Get("/", h.Friends.List)
			r.Post("/", h.Friends.Send)
			r.Get("/requests", h.Friends.Requests)
			r.Patch("/{id}", h.Friends.Respond)
			r.Delete("/{id}", h.Friends.Remove)
		})

		// ──── Class Routes ────
		r.Route("/classes", func(r chi.Router) {
			r.Use(opts.JWTAuth.Middleware)
			r.Get("/", h.Classes.List)
			r.Get("/mine", h.Classes.Mine)
			r.Post("/join", h.Classes.Join)
			r.Post("/leave", h.Classes.Leave)
		})

		// ──── Location Routes ────
		r.Group(func(r chi.Router) {
			r.Use(opts.JWTAuth.Middleware)
			r.Get("/locations", h.Locations.List)
			r.Get("/user/location", h.Locations.Current)
			r.Post("/user/location", h.Locations.Set)
		})

		// ──── Chat Routes ────
		r.Route("/chat", func(r chi.Router) {
			r.Use(opts.JWTAuth.Middleware)
			r.Get("/rooms", h.Chat.Rooms)
			r.Post("/rooms", h.Chat.CreateRoom)
			r.Get("/messages", h.Chat.Messages)
			r.Post("/messages", h.Chat.Send)
		})

		// ──── User Routes ────
		r.Route("/users", func(r chi.Router) {
			r.Use(opts.JWTAuth.Middleware)
			r.Post("/", h.Users.Create)
			r.Get("/me", h.Users.Me)
			r.Put("/me", h.Users.UpdateMe)
			r.Put("/me/username", h.Users.ChangeUsername)
			r.Post("/me/avatar", h.Users.UploadAvatar)
			r.Get("/search", h.Users.Search)
			r.Get("/stats", h.Users.Stats)
			r.Get("/{id}", h.Users.Profile)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
