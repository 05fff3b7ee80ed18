package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"wagate/internal/database"
	"wagate/internal/middleware"
	"wagate/internal/models"
	"wagate/internal/service"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router   *mux.Router
	logger   *logrus.Logger
	session  *service.SessionManager
	notifier *service.NoticeBroadcaster
	db       *database.Database
	server   *http.Server

	// appCtx outlives individual requests; session startup and reconnects
	// must not die with the request that triggered them.
	appCtx context.Context
}

func NewServer(
	appCtx context.Context,
	cfg *models.Config,
	session *service.SessionManager,
	notifier *service.NoticeBroadcaster,
	db *database.Database,
	logger *logrus.Logger,
) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		logger:   logger,
		session:  session,
		notifier: notifier,
		db:       db,
		appCtx:   appCtx,
	}

	s.router.Use(middleware.Observability(logger))
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleStart()).Methods(http.MethodGet)
	s.router.HandleFunc("/qr", s.handleQR()).Methods(http.MethodGet)
	s.router.HandleFunc("/logout", s.handleLogout()).Methods(http.MethodGet)

	s.router.HandleFunc("/message", s.handleSendMessage()).Methods(http.MethodPost)
	s.router.HandleFunc("/simulate", s.handleSimulate()).Methods(http.MethodPost)

	s.router.HandleFunc("/profile/status/{chatId}", s.handleProfileStatus()).Methods(http.MethodGet)
	s.router.HandleFunc("/profile/picture/{chatId}", s.handleProfilePicture()).Methods(http.MethodGet)
	s.router.HandleFunc("/number/{number}", s.handleResolveNumber()).Methods(http.MethodGet)

	s.router.HandleFunc("/chats", s.handleChats()).Methods(http.MethodGet)
	s.router.HandleFunc("/contacts", s.handleContacts()).Methods(http.MethodGet)

	s.router.HandleFunc("/webhooks", s.handleListWebhooks()).Methods(http.MethodGet)
	s.router.HandleFunc("/webhooks", s.handleAddWebhook()).Methods(http.MethodPost)
	s.router.HandleFunc("/webhooks/{index}", s.handleDeleteWebhook()).Methods(http.MethodDelete)

	s.router.HandleFunc("/events", s.handleEvents()).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	s.logger.Infof("Starting server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) handleStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.session.Start(s.appCtx); err != nil {
			s.logger.WithError(err).Error("Failed to start session")
			s.writeJSON(w, http.StatusOK, map[string]string{
				"status": "error",
				"error":  err.Error(),
			})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{
			"status": string(s.session.State()),
		})
	}
}

func (s *Server) handleQR() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.session.CurrentPairing())
	}
}

func (s *Server) handleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.session.Logout(r.Context())
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
	}
}

func (s *Server) handleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		resp := s.session.SendMessage(r.Context(), &req)
		s.writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleSimulate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SimulateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		s.session.Simulate(r.Context(), req.ChatID, req.Action)
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleProfileStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := mux.Vars(r)["chatId"]
		s.writeJSON(w, http.StatusOK, map[string]string{
			"status": s.session.ProfileStatus(r.Context(), chatID),
		})
	}
}

func (s *Server) handleProfilePicture() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := mux.Vars(r)["chatId"]
		s.writeJSON(w, http.StatusOK, map[string]string{
			"url": s.session.ProfilePicture(r.Context(), chatID),
		})
	}
}

func (s *Server) handleResolveNumber() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := mux.Vars(r)["number"]
		info := s.session.ResolveNumber(r.Context(), number)
		if info == nil {
			s.writeJSON(w, http.StatusOK, map[string]string{})
			return
		}
		s.writeJSON(w, http.StatusOK, info)
	}
}

func (s *Server) handleChats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chats := s.session.Chats()
		if chats == nil {
			chats = []json.RawMessage{}
		}
		s.writeJSON(w, http.StatusOK, chats)
	}
}

func (s *Server) handleContacts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts := s.session.Contacts()
		if contacts == nil {
			contacts = []json.RawMessage{}
		}
		s.writeJSON(w, http.StatusOK, contacts)
	}
}

func (s *Server) handleListWebhooks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respondWebhookList(w, r)
	}
}

func (s *Server) handleAddWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
			return
		}
		parsed, err := url.Parse(req.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url must be a valid http or https URL"})
			return
		}
		if err := s.db.InsertWebhook(r.Context(), req.URL); err != nil {
			s.logger.WithError(err).Error("Failed to insert webhook")
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store webhook"})
			return
		}
		s.respondWebhookList(w, r)
	}
}

// handleDeleteWebhook removes the webhook at a 1-based position in the list
// order, matching how the list endpoint presents them.
func (s *Server) handleDeleteWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(mux.Vars(r)["index"])
		if err != nil || index < 1 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "index must be a positive integer"})
			return
		}
		if err := s.db.DeleteWebhookAt(r.Context(), index-1); err != nil {
			s.logger.WithError(err).Error("Failed to delete webhook")
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete webhook"})
			return
		}
		s.respondWebhookList(w, r)
	}
}

func (s *Server) respondWebhookList(w http.ResponseWriter, r *http.Request) {
	urls, err := s.db.ListWebhooks(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to list webhooks")
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list webhooks"})
		return
	}
	if urls == nil {
		urls = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"webhooks": urls})
}

// handleEvents streams connectivity notices (pairing codes, connection state
// changes) over a websocket until the client hangs up.
func (s *Server) handleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			s.logger.WithError(err).Debug("Failed to accept websocket")
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		notices, cancel := s.notifier.Subscribe()
		defer cancel()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case notice, ok := <-notices:
				if !ok {
					return
				}
				data, err := json.Marshal(notice)
				if err != nil {
					continue
				}
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					return
				}
			}
		}
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
