// Package api exposes cron job triggers, search and the Telegram webhook over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/uneeb123/alpha-hunter-sub000/internal/cache"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/ask"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/clustering"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/metrics"

	"go.uber.org/zap"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Job runs one scheduled task and returns a JSON-serializable summary.
type Job func(ctx context.Context) (any, error)

type Asker interface {
	Answer(ctx context.Context, question string) (*ask.Answer, error)
}

type ClusterBuilder interface {
	Build(ctx context.Context, k int) (*clustering.Result, error)
}

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u tgbotapi.Update) error
}

// Deps are the features behind each route. Nil entries answer 503.
type Deps struct {
	Alert         Job
	UpdateTokens  Job
	FetchTweets   Job
	EmbedTweets   Job
	PipelineCheck Job
	Ask           Asker
	Clusters      ClusterBuilder
	Telegram      UpdateHandler
	Cache         cache.Cache
}

type Options struct {
	CronSecret    string
	ReadToken     string // ask and visualization; CronSecret is accepted there too
	WebhookSecret string
	Timeout       time.Duration
	ClusterTTL    time.Duration
}

type Server struct {
	router chi.Router
	deps   Deps
	opts   Options
}

func NewServer(deps Deps, opts Options) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.ClusterTTL <= 0 {
		opts.ClusterTTL = 15 * time.Minute
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory(64)
	}
	s := &Server{deps: deps, opts: opts}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(recoverMiddleware)
	r.Use(timeoutMiddleware(opts.Timeout))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(bearerMiddleware(opts.CronSecret))
			s.jobRoute(r, "/alert", "alert", deps.Alert)
			s.jobRoute(r, "/update-tokens", "update_tokens", deps.UpdateTokens)
			s.jobRoute(r, "/fetch-tweets", "fetch_tweets", deps.FetchTweets)
			s.jobRoute(r, "/embed-tweets", "embed_tweets", deps.EmbedTweets)
			s.jobRoute(r, "/pipeline/check", "pipeline_check", deps.PipelineCheck)
		})
		// These call paid LLM and embedding APIs.
		r.Group(func(r chi.Router) {
			r.Use(bearerMiddleware(opts.ReadToken, opts.CronSecret))
			r.Post("/ask", s.ask)
			r.Get("/visualization/clusters", s.clusters)
			r.Get("/visualization/clusters.png", s.clustersPNG)
		})
		r.Post("/telegram/webhook", s.telegramWebhook)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jobRoute registers GET and POST for a job; cron schedulers use either.
func (s *Server) jobRoute(r chi.Router, path, name string, job Job) {
	h := func(w http.ResponseWriter, req *http.Request) {
		if job == nil {
			writeError(w, http.StatusServiceUnavailable, name+" is not configured")
			return
		}
		start := time.Now()
		result, err := job(req.Context())
		metrics.ObserveJob(name, err)
		if err != nil {
			log.LogError("Job failed", zap.String("job", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		log.LogSuccess("Job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": result})
	}
	r.Get(path, h)
	r.Post(path, h)
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ask == nil {
		writeError(w, http.StatusServiceUnavailable, "ask is not configured")
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	ans, err := s.deps.Ask.Answer(r.Context(), req.Question)
	if errors.Is(err, ask.ErrEmptyQuestion) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) telegramWebhook(w http.ResponseWriter, r *http.Request) {
	if s.opts.WebhookSecret != "" && !secretEqual(r.Header.Get(telegramSecretHeader), s.opts.WebhookSecret) {
		writeError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}
	if s.deps.Telegram == nil {
		writeError(w, http.StatusServiceUnavailable, "telegram is not configured")
		return
	}
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid update")
		return
	}
	// Telegram redelivers on non-2xx, so handler errors are logged and acknowledged.
	if err := s.deps.Telegram.HandleUpdate(r.Context(), update); err != nil {
		log.LogError("Telegram update failed", zap.Int("updateID", update.UpdateID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// bearerMiddleware accepts any of the non-empty secrets. With none configured the routes are open.
func bearerMiddleware(secrets ...string) func(http.Handler) http.Handler {
	var accepted []string
	for _, s := range secrets {
		if s != "" {
			accepted = append(accepted, s)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(accepted) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if ok {
				for _, secret := range accepted {
					if secretEqual(token, secret) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			writeError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func secretEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.LogWarn("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
