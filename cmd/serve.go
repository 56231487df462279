package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cleanup/internal/engine"
	"github.com/sells-group/crm-cleanup/internal/fetcher"
	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for cleanup runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCleanup(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		s := &server{
			env:            env,
			maxUpload:      cfg.Server.MaxUploadMB << 20,
			allowedOrigins: cfg.Server.AllowedOrigins,
			ai:             cfg.AI.Enabled,
		}

		port := resolvePort(servePort, cfg.Server.Port)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           s.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// resolvePort prefers the flag value over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

type server struct {
	env            *cleanupEnv
	maxUpload      int64
	allowedOrigins []string
	ai             bool
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Run-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/runs", func(r chi.Router) {
		r.Post("/", s.handleCreateRun)
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
		r.Get("/{id}/audit", s.handleListAudit)
	})
	return r
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	var parts []fetcher.Part
	primary, err := formParts(r.MultipartForm, "file", model.SourcePrimary)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(primary) == 0 {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	phone, err := formParts(r.MultipartForm, "phone_file", model.SourcePhoneExport)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	parts = append(append(parts, primary...), phone...)

	records, meta, err := fetcher.LoadParts(ctx, parts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	b := cleanupBatch{Records: records, Inputs: meta}

	sold, err := formParts(r.MultipartForm, "sold", model.SourcePrimary)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, p := range sold {
		addrs, err := fetcher.ParseAddressList(ctx, p.Name, p.Data)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		b.Sold = append(b.Sold, addrs...)
	}

	changedOnly, _ := strconv.ParseBool(r.URL.Query().Get("changed_only"))
	out, err := s.env.process(ctx, b, cleanupOptions{
		ChangedOnly: changedOnly,
		AI:          s.ai,
		Output:      "http",
	})
	if err != nil {
		zap.L().Warn("cleanup run did not finish", zap.String("run_id", runID(out)), zap.Error(err))
		if ctx.Err() != nil {
			return
		}
		if status := runErrorStatus(err); status == http.StatusUnprocessableEntity {
			writeError(w, status, err.Error())
		} else {
			writeError(w, status, "internal error")
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="cleaned.csv"`)
	if out.RunID != "" {
		w.Header().Set("X-Run-ID", out.RunID)
	}
	w.WriteHeader(http.StatusOK)
	if err := fetcher.WriteCSV(w, out.Columns, out.Exported); err != nil {
		zap.L().Warn("write csv response failed", zap.String("run_id", out.RunID), zap.Error(err))
	}
}

// runErrorStatus maps a failed cleanup run to a response code. Only input
// the engine rejects is the client's fault.
func runErrorStatus(err error) int {
	if eris.Is(err, engine.ErrDuplicateID) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func runID(out *cleanupOutput) string {
	if out == nil {
		return ""
	}
	return out.RunID
}

// formParts reads every upload under field into memory.
func formParts(form *multipart.Form, field string, source model.Source) ([]fetcher.Part, error) {
	if form == nil {
		return nil, nil
	}
	var out []fetcher.Part
	for _, fh := range form.File[field] {
		f, err := fh.Open()
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", fh.Filename)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", fh.Filename)
		}
		out = append(out, fetcher.Part{Name: fh.Filename, Source: source, Data: data})
	}
	return out, nil
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{Status: model.RunStatus(q.Get("status"))}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	runs, err := s.env.Store.ListRuns(r.Context(), filter)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.env.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.env.Store.GetRun(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	rows, err := s.env.Store.ListAudit(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if rows == nil {
		rows = []model.AuditRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *server) requireStore(w http.ResponseWriter) bool {
	if s.env == nil || s.env.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return false
	}
	return true
}

func (s *server) storeError(w http.ResponseWriter, err error) {
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	zap.L().Error("store request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
