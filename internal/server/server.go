package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fzheng/homepoints/internal/authz"
	"github.com/fzheng/homepoints/internal/backup"
	"github.com/fzheng/homepoints/internal/chorereview"
	"github.com/fzheng/homepoints/internal/handler"
	"github.com/fzheng/homepoints/internal/ledger"
	"github.com/fzheng/homepoints/internal/middleware"
	"github.com/fzheng/homepoints/internal/push"
	"github.com/fzheng/homepoints/internal/savings"
	"github.com/fzheng/homepoints/internal/store"
	ws "github.com/fzheng/homepoints/internal/websocket"
)

// Config holds server-level configuration passed down from main.
type Config struct {
	Backup          backup.Config
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	familyH       *handler.FamilyHandler
	choreTypeH    *handler.ChoreTypeHandler
	choreRecordH  *handler.ChoreRecordHandler
	pointsH       *handler.PointsHandler
	savingsH      *handler.SavingsHandler
	pushH         *handler.PushHandler
	backupH       *handler.BackupHandler
	sessionStore  *store.SessionStore
	familyStore   *store.FamilyStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	familyStore := store.NewFamilyStore(db)
	sessionStore := store.NewSessionStore(db)
	choreTypeStore := store.NewChoreTypeStore(db)
	choreRecordStore := store.NewChoreRecordStore(db)
	pointsStore := store.NewPointsStore(db)
	savingsStore := store.NewSavingsStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)
	settingsStore := store.NewSettingsStore(db)

	authzSvc := authz.NewService(familyStore)
	ledgerSvc := ledger.NewService(pointsStore, familyStore, userStore, authzSvc)
	reviewSvc := chorereview.NewService(choreRecordStore, choreTypeStore, authzSvc)
	savingsSvc := savings.NewService(savingsStore, familyStore, authzSvc)

	vapidPub, vapidPriv := vapidKeys(cfg, settingsStore, logger)
	pushSvc := push.NewService(vapidPub, vapidPriv, pushStore, logger.With("component", "push"))

	// Backup state is operator-facing and has no family scoping, so it is
	// surfaced through the status endpoint rather than the websocket hub.
	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, nil)

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, familyStore, sessionStore, logger.With("component", "auth")),
		familyH:       handler.NewFamilyHandler(familyStore, userStore, sessionStore, authzSvc, logger.With("component", "family")),
		choreTypeH:    handler.NewChoreTypeHandler(choreTypeStore, authzSvc, logger.With("component", "chore_type")),
		choreRecordH:  handler.NewChoreRecordHandler(reviewSvc, familyStore, hub, pushSvc, logger.With("component", "chore_record")),
		pointsH:       handler.NewPointsHandler(ledgerSvc, familyStore, hub, pushSvc, logger.With("component", "points")),
		savingsH:      handler.NewSavingsHandler(savingsSvc, familyStore, hub, pushSvc, logger.With("component", "savings")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup")),
		sessionStore:  sessionStore,
		familyStore:   familyStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager so main can run its schedule.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// vapidKeys returns the configured VAPID key pair, falling back to a pair
// generated on first run and persisted in settings so subscriptions stay
// valid across restarts.
func vapidKeys(cfg Config, settings *store.SettingsStore, logger *slog.Logger) (string, string) {
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		return cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey
	}

	pub, err1 := settings.Get("vapid_public_key")
	priv, err2 := settings.Get("vapid_private_key")
	if err1 == nil && err2 == nil && pub != "" && priv != "" {
		return pub, priv
	}

	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		logger.Error("generate VAPID keys", "error", err)
		return "", ""
	}
	if err := settings.Set("vapid_public_key", pub); err != nil {
		logger.Error("persist VAPID public key", "error", err)
	}
	if err := settings.Set("vapid_private_key", priv); err != nil {
		logger.Error("persist VAPID private key", "error", err)
	}
	return pub, priv
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Authenticated routes that work without an active family
	authedMux := http.NewServeMux()
	authedMux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	authedMux.HandleFunc("GET /api/auth/me", s.authH.Me)
	authedMux.HandleFunc("POST /api/families", s.familyH.Create)
	authedMux.HandleFunc("POST /api/families/join", s.familyH.Join)
	authedMux.HandleFunc("POST /api/families/switch", s.familyH.Switch)
	authedMux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	authedMux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
	authedMux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	authedMux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)

	// Family-scoped routes
	familyMux := http.NewServeMux()
	s.registerFamilyRoutes(familyMux)
	authedMux.Handle("/", middleware.RequireFamily(familyMux))

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.familyStore)
	outerMux.Handle("/", authMiddleware(authedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerFamilyRoutes(mux *http.ServeMux) {
	// Family management
	mux.HandleFunc("GET /api/family", s.familyH.Get)
	mux.HandleFunc("GET /api/family/members", s.familyH.ListMembers)
	mux.HandleFunc("PUT /api/family/members/{id}/role", s.familyH.UpdateMemberRole)
	mux.HandleFunc("DELETE /api/family/members/{id}", s.familyH.RemoveMember)
	mux.HandleFunc("PUT /api/family/points-value", s.familyH.UpdatePointsValue)

	// Chore catalog
	mux.HandleFunc("POST /api/chore-types", s.choreTypeH.Create)
	mux.HandleFunc("GET /api/chore-types", s.choreTypeH.List)
	mux.HandleFunc("PUT /api/chore-types/{id}", s.choreTypeH.Update)
	mux.HandleFunc("DELETE /api/chore-types/{id}", s.choreTypeH.Deactivate)

	// Chore records and review
	mux.HandleFunc("POST /api/chore-records", s.choreRecordH.Submit)
	mux.HandleFunc("GET /api/chore-records", s.choreRecordH.List)
	mux.HandleFunc("GET /api/chore-records/{id}", s.choreRecordH.Get)
	mux.HandleFunc("POST /api/chore-records/{id}/review", s.choreRecordH.Review)

	// Points ledger
	mux.HandleFunc("GET /api/points/summary", s.pointsH.Summary)
	mux.HandleFunc("GET /api/points/transactions", s.pointsH.Transactions)
	mux.HandleFunc("POST /api/points/transactions", s.pointsH.Append)
	mux.HandleFunc("GET /api/points/ranking", s.pointsH.Ranking)

	// Redemption workflow
	mux.HandleFunc("POST /api/redemptions", s.pointsH.SubmitRedemption)
	mux.HandleFunc("GET /api/redemptions", s.pointsH.ListRedemptions)
	mux.HandleFunc("POST /api/redemptions/{id}/review", s.pointsH.ReviewRedemption)

	// Savings
	mux.HandleFunc("GET /api/savings/account", s.savingsH.Account)
	mux.HandleFunc("GET /api/savings/transactions", s.savingsH.Transactions)
	mux.HandleFunc("POST /api/savings/deposit", s.savingsH.Deposit)
	mux.HandleFunc("POST /api/savings/withdraw", s.savingsH.Withdraw)
	mux.HandleFunc("POST /api/savings/requests", s.savingsH.SubmitRequest)
	mux.HandleFunc("GET /api/savings/requests", s.savingsH.ListRequests)
	mux.HandleFunc("POST /api/savings/requests/{id}/review", s.savingsH.ReviewRequest)
	mux.HandleFunc("GET /api/savings/interest/preview", s.savingsH.PreviewInterest)
	mux.HandleFunc("POST /api/savings/interest/settle", s.savingsH.SettleInterest)
	mux.HandleFunc("PUT /api/savings/rate", s.savingsH.UpdateRate)

	// Backups (admin only)
	backupMux := http.NewServeMux()
	backupMux.HandleFunc("GET /api/backups", s.backupH.List)
	backupMux.HandleFunc("POST /api/backups", s.backupH.RunNow)
	backupMux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	backupMux.HandleFunc("POST /api/backups/{id}/restore", s.backupH.Restore)
	backupMux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)
	mux.Handle("/api/backups", middleware.RequireAdmin(backupMux))
	mux.Handle("/api/backups/", middleware.RequireAdmin(backupMux))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
