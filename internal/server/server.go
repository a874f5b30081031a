package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/harunnryd/thinx/internal/config"
	"github.com/harunnryd/thinx/internal/prompt"
	"github.com/harunnryd/thinx/internal/relay"
	"github.com/harunnryd/thinx/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP surface of the web chat: JSON endpoints, the two
// streaming chat routes, uploads and page serving.
type Server struct {
	cfg     *config.Config
	history *store.History
	relay   *relay.Relay
	chat    relay.Route
	drawBot relay.Route
	now     func() time.Time
}

func New(cfg *config.Config, history *store.History, a relay.Assistant) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if history == nil {
		return nil, fmt.Errorf("history store not initialized")
	}
	if a == nil {
		return nil, fmt.Errorf("assistant runner not configured")
	}

	opts, err := relay.OptionsFromConfig(cfg.Relay)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:     cfg,
		history: history,
		relay:   relay.New(a, prompt.NewAssembler(history), history, opts),
		chat:    relay.Route{Variant: prompt.ChatVariant(cfg), Style: relay.ChatStyle},
		drawBot: relay.Route{Variant: prompt.DrawBotVariant(cfg), Style: relay.DrawBotStyle},
		now:     time.Now,
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)
		r.Post("/message/stream", s.relay.Handler(s.chat))
		r.Post("/draw_bot/stream", s.relay.Handler(s.drawBot))
		r.Post("/upload", s.handleUpload)
		r.Get("/image", s.handleImage)
	})

	r.Get("/", s.page("index.html", "Web interface not found. Run setup first."))
	r.Get("/skills", s.page("skills.html", "Skills page not found."))
	r.Get("/draw_bot", s.page("draw_bot.html", "Draw Bot page not found."))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.Paths.Web))))
	r.Get("/{filename}", s.handleWebFile)

	return r
}

type statusResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:    "ok",
		Service:   s.cfg.Chat.ServiceName,
		Timestamp: store.FormatTimestamp(s.now()),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.history.ReadRecent(r.Context(), s.cfg.Chat.UserID, s.cfg.Chat.HistoryLimit)
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}
