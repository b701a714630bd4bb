package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/meridian-sourcing/procure-cli/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for generation and portfolio queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limiter := rate.NewLimiter(rate.Limit(cfg.Server.RequestsPerSec), cfg.Server.Burst)
		router := buildRouter(runner, limiter)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func buildRouter(runner *pipeline.Runner, limiter *rate.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(throttle(limiter))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/bids/{bidID}/suppliers/{supplierID}/generate", func(w http.ResponseWriter, req *http.Request) {
		bidID := chi.URLParam(req, "bidID")
		supplierID := chi.URLParam(req, "supplierID")

		res, err := runner.GenerateForSupplier(req.Context(), bidID, supplierID)
		if err != nil {
			zap.L().Error("generation failed",
				zap.String("bid_id", bidID),
				zap.String("supplier_org_id", supplierID),
				zap.Error(err),
			)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Get("/bids/{bidID}/portfolio", func(w http.ResponseWriter, req *http.Request) {
		bidID := chi.URLParam(req, "bidID")
		query := req.URL.Query().Get("q")

		result, err := runner.Portfolio(req.Context(), bidID, query, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/questions/{questionID}/answer", func(w http.ResponseWriter, req *http.Request) {
		questionID := chi.URLParam(req, "questionID")
		if err := runner.Store.AnswerQuestion(req.Context(), questionID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "answered", "question_id": questionID})
	})

	return r
}

func throttle(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !limiter.Allow() {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if isNotFound(err) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}
