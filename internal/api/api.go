// Package api serves the learning engine over HTTP as JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yuxiji/scenetalk/internal/dialogue"
	"github.com/yuxiji/scenetalk/internal/learning"
	"github.com/yuxiji/scenetalk/internal/logging"
	"github.com/yuxiji/scenetalk/internal/practice"
	"github.com/yuxiji/scenetalk/internal/progress"
	"github.com/yuxiji/scenetalk/internal/review"
	"github.com/yuxiji/scenetalk/internal/scene"
	"github.com/yuxiji/scenetalk/internal/scoring"
)

// Service is the learning surface the handlers call. *learning.Service
// implements it.
type Service interface {
	SubScenes(ctx context.Context, sceneID string) ([]scene.SubScene, error)
	SubScene(ctx context.Context, id string) (*learning.Detail, error)
	Practice(ctx context.Context, subSceneID string, qaIDs []string) ([]practice.Question, error)
	Advance(ctx context.Context, req learning.AdvanceRequest) (dialogue.Turn, error)
	Skip(ctx context.Context, subSceneID, runID string, currentIndex int) (dialogue.Turn, error)
	Score(ctx context.Context, subSceneID string, results []scoring.Result) (learning.Report, error)
	Review(ctx context.Context, subSceneID string, history []review.Entry) []review.Highlight
	Speaking(userText, targetText string) practice.SpeakingResult
	LoadRawProgress(ctx context.Context, subSceneID string) (json.RawMessage, error)
	SaveRawProgress(ctx context.Context, subSceneID string, data json.RawMessage) error
}

var _ Service = (*learning.Service)(nil)

// Options configures the router.
type Options struct {
	CORSOrigins []string
	// Timeout bounds each request; zero means 60s. Judge calls go through
	// the LLM provider's own retry budget inside it.
	Timeout time.Duration
}

type server struct {
	svc      Service
	validate *validator.Validate
	log      logrus.FieldLogger
}

// NewRouter mounts every route on a chi router.
func NewRouter(svc Service, opts Options, log logrus.FieldLogger) http.Handler {
	log = logging.OrDiscard(log)
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	s := &server{svc: svc, validate: validator.New(), log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(opts.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/sub-scenes", func(r chi.Router) {
		r.Get("/", s.listSubScenes)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSubScene)
			r.Get("/practice", s.practice)
			r.Post("/ai-dialogue", s.aiDialogue)
			r.Post("/skip", s.skip)
			r.Post("/score", s.score)
			r.Post("/review", s.review)
			r.Post("/speaking-practice", s.speaking)
			r.Get("/progress", s.getProgress)
			r.Put("/progress", s.putProgress)
		})
	})
	return r
}

// requestLogger logs one line per request at info.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"latency_ms": time.Since(start).Milliseconds(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("http request")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errResp struct {
	Error string `json:"error"`
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

// fail maps engine errors onto status codes. Anything unrecognised is a
// 500 and is logged.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ie *dialogue.IndexError
	switch {
	case errors.Is(err, dialogue.ErrSubSceneNotFound), errors.Is(err, dialogue.ErrNoQAPairs):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ie), errors.Is(err, progress.ErrNotObject), errors.Is(err, progress.ErrSubSceneMismatch):
		writeErr(w, http.StatusBadRequest, err.Error())
	default:
		s.log.WithFields(logrus.Fields{
			"path":         r.URL.Path,
			"sub_scene_id": chi.URLParam(r, "id"),
		}).WithError(err).Error("request failed")
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into v and validates it. It writes the 400 and
// returns false on failure.
func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeErr(w, http.StatusBadRequest, "invalid "+verrs[0].Field()+": failed "+verrs[0].Tag())
			return false
		}
		writeErr(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
