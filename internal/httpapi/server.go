// Package httpapi exposes the editing pipeline over HTTP: edit submission,
// refine, session history, result retrieval, status and health probes.
package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"autoedit/internal/pipeline"
	"autoedit/internal/storage"
	"autoedit/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Edit(ctx context.Context, req types.EditRequest) (pipeline.Outcome, error)
	Refine(ctx context.Context, prompt string, mode types.Mode) (pipeline.Outcome, error)
	History() []types.HistoryEntry
	Status() types.StatusResponse
	Ready() bool
}

// ResultIndex is the read side of the result store used by the /results
// endpoints. Nil disables them.
type ResultIndex interface {
	All() []storage.Record
	ByID(id string) (storage.Record, bool)
	ImagePath(rec storage.Record) string
	ThumbPath(rec storage.Record) string
}

func NewMux(svc Service, results ResultIndex) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/edit", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var img []byte
		var prompt, modeStr string
		switch ct := strings.ToLower(r.Header.Get("Content-Type")); {
		case strings.HasPrefix(ct, "application/json"):
			var body types.EditRequestBody
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid JSON body", "")
				return
			}
			var err error
			if img, err = decodeImageField(body.Image); err != nil {
				writeJSONError(w, http.StatusBadRequest, "image must be base64-encoded", "")
				return
			}
			prompt, modeStr = body.Prompt, body.Mode
		case strings.HasPrefix(ct, "multipart/form-data"):
			var err error
			if img, prompt, modeStr, err = parseMultipartEdit(r); err != nil {
				writeJSONError(w, http.StatusBadRequest, err.Error(), "")
				return
			}
		default:
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json or multipart/form-data", "")
			return
		}
		mode := types.Mode(modeStr)
		if modeStr == "" {
			mode = types.ModeCasual
		}
		runPipeline(w, r, svc, results, func(ctx context.Context) (pipeline.Outcome, error) {
			return svc.Edit(ctx, types.EditRequest{SourceImage: img, Prompt: prompt, Mode: mode})
		}, string(mode))
	})

	r.Post("/refine", func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", "")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var body types.RefineRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body", "")
			return
		}
		mode := types.Mode(body.Mode)
		if body.Mode == "" {
			mode = types.ModeCasual
		}
		runPipeline(w, r, svc, results, func(ctx context.Context) (pipeline.Outcome, error) {
			return svc.Refine(ctx, body.Prompt, mode)
		}, string(mode))
	})

	r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
		includeImages := r.URL.Query().Get("images") == "1"
		entries := svc.History()
		resp := types.HistoryResponse{Entries: make([]types.HistoryEntryView, 0, len(entries))}
		for _, e := range entries {
			view := types.HistoryEntryView{
				CreatedAt:     e.CreatedAt.Unix(),
				UserBrief:     e.Request.Prompt,
				Mode:          string(e.Request.Mode),
				AppliedPrompt: e.Result.AppliedPrompt,
			}
			if includeImages {
				view.Image = base64.StdEncoding.EncodeToString(e.Result.OutputImage)
			}
			resp.Entries = append(resp.Entries, view)
		}
		writeJSON(w, resp)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	if results != nil {
		r.Get("/results", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"results": results.All()})
		})
		r.Get("/results/{id}", func(w http.ResponseWriter, r *http.Request) {
			rec, ok := results.ByID(chi.URLParam(r, "id"))
			if !ok {
				writeJSONError(w, http.StatusNotFound, "unknown result id", "")
				return
			}
			writeJSON(w, rec)
		})
		r.Get("/results/{id}/image", func(w http.ResponseWriter, r *http.Request) {
			rec, ok := results.ByID(chi.URLParam(r, "id"))
			if !ok {
				writeJSONError(w, http.StatusNotFound, "unknown result id", "")
				return
			}
			http.ServeFile(w, r, results.ImagePath(rec))
		})
		r.Get("/results/{id}/thumb", func(w http.ResponseWriter, r *http.Request) {
			rec, ok := results.ByID(chi.URLParam(r, "id"))
			if !ok {
				writeJSONError(w, http.StatusNotFound, "unknown result id", "")
				return
			}
			http.ServeFile(w, r, results.ThumbPath(rec))
		})
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// runPipeline executes one pipeline call with logging, timeout and error
// mapping shared by /edit and /refine.
func runPipeline(w http.ResponseWriter, r *http.Request, svc Service, results ResultIndex, call func(context.Context) (pipeline.Outcome, error), mode string) {
	lvl := requestLogLevel(r)
	logEditStart(r, lvl, mode)
	start := time.Now()

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if editTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, time.Duration(editTimeout)*time.Second)
		defer tcancel()
	}

	out, err := call(ctx)
	if err != nil {
		// If context was canceled (client disconnect), just return.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status, stg := mapPipelineError(err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure("pipeline_busy")
		}
		writeJSONError(w, status, err.Error(), stg)
		logEditEnd(r, lvl, status, start, err)
		return
	}

	resp := types.EditResponse{
		Image:              base64.StdEncoding.EncodeToString(out.Result.OutputImage),
		UserBrief:          out.Result.UserBrief,
		TranslationInsight: out.Result.TranslationInsight,
		AppliedPrompt:      out.Result.AppliedPrompt,
		Steps:              out.Steps,
		DurationSeconds:    out.Duration.Seconds(),
	}
	// Single in-flight pipeline: the newest record is this run's result.
	if results != nil {
		if all := results.All(); len(all) > 0 {
			resp.ResultID = all[0].ID
		}
	}
	writeJSON(w, resp)
	logEditEnd(r, lvl, http.StatusOK, start, nil)
}

// parseMultipartEdit reads an edit request submitted as a form: the image
// under the "image" file field, prompt and mode as plain fields.
func parseMultipartEdit(r *http.Request) (img []byte, prompt, mode string, err error) {
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		return nil, "", "", errors.New("invalid multipart body")
	}
	f, _, err := r.FormFile("image")
	if err != nil {
		return nil, "", "", errors.New("multipart body must carry an image file field")
	}
	defer f.Close()
	img, err = io.ReadAll(f)
	if err != nil {
		return nil, "", "", errors.New("failed to read image file field")
	}
	return img, r.FormValue("prompt"), r.FormValue("mode"), nil
}

// decodeImageField accepts raw base64 or a data URL.
func decodeImageField(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(s)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response", "")
	}
}
