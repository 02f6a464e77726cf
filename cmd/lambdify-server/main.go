// Command lambdify-server exposes the lambdify tools over HTTP for agent
// frameworks.
//
// Usage:
//
//	go run ./cmd/lambdify-server -port 8080 -cache 512
//
// Tool call endpoint: POST /tool
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"

	"github.com/njchilds90/golambdify/cache"
	"github.com/njchilds90/golambdify/lambdify"
	"github.com/njchilds90/golambdify/symbol"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type config struct {
	port    int
	cache   int
	out     string
	workers int
	verbose bool
}

func parseFlags(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("lambdify-server", flag.ContinueOnError)
	fs.IntVar(&cfg.port, "port", 8080, "Port to listen on")
	fs.IntVar(&cfg.cache, "cache", cache.DefaultCapacity, "Number of compiled callables kept in memory")
	fs.StringVar(&cfg.out, "out", "", "Directory receiving the rendering of every lambdify_render call")
	fs.IntVar(&cfg.workers, "workers", 0, "Workers of the fast-large-array backend (0: one per CPU)")
	fs.BoolVar(&cfg.verbose, "v", false, "Log at debug level")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if cfg.port <= 0 || cfg.port > 65535 {
		return config{}, errors.Errorf("invalid port %d", cfg.port)
	}
	return cfg, nil
}

type server struct {
	logger *slog.Logger
	cache  *cache.Cache
	tools  lambdify.Tools
	out    string
}

func newServer(cfg config, logger *slog.Logger) *server {
	opts := []lambdify.Option{lambdify.WithLogger(logger)}
	if cfg.workers != 0 {
		opts = append(opts, lambdify.WithWorkers(cfg.workers))
	}
	c := cache.New(cfg.cache, opts...)
	return &server{
		logger: logger,
		cache:  c,
		tools:  lambdify.Tools{Compile: c.Compile},
		out:    cfg.out,
	}
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tool", s.handleTool)
	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, lambdify.ToolSpec())
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"cached": s.cache.Len(),
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
	return mux
}

func (s *server) handleTool(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic in /tool", "panic", rec, "stack", string(debug.Stack()))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var req lambdify.ToolRequest
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if dec.More() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: trailing data"})
		return
	}

	start := time.Now()
	resp := s.tools.Handle(req)
	if resp.Error == "" && req.Tool == "lambdify_render" && s.out != "" {
		if err := s.persist(req); err != nil {
			resp = lambdify.ToolResponse{Error: err.Error()}
		}
	}
	s.logger.Debug("tool call", "tool", req.Tool, "duration", time.Since(start), "error", resp.Error)
	writeJSON(w, http.StatusOK, resp)
}

// persist writes the rendering requested by req under the output
// directory, in a file named after the rendered function. The callable
// comes from the cache filled by the tool call.
func (s *server) persist(req lambdify.ToolRequest) error {
	raw, _ := req.Params["vars"].([]any)
	vars := make([]string, len(raw))
	for i, v := range raw {
		vars[i], _ = v.(string)
	}
	expr, err := symbol.Decode(req.Params["expr"])
	if err != nil {
		return err
	}
	l, err := s.cache.Compile(vars, expr)
	if err != nil {
		return err
	}
	name, _ := req.Params["name"].(string)
	if name == "" {
		name = lambdify.DefaultName
	}
	return l.Persist(filepath.Join(s.out, name+".go.txt"), name)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(2)
	}
	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if cfg.out != "" {
		if err := os.MkdirAll(cfg.out, 0o755); err != nil {
			logger.Error("cannot create output directory", "dir", cfg.out, "error", err)
			os.Exit(1)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.port)
	logger.Info("lambdify server listening", "addr", addr, "cache", cfg.cache, "out", cfg.out)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newServer(cfg, logger).handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
