package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/taskweave/taskweave/pkg/protocol"
)

// Handler binds one registered webhook path to its trigger callback.
type Handler struct {
	TriggerID string
	Callback  protocol.TriggerCallback
	Logger    *slog.Logger
}

// ServerManager multiplexes all webhook triggers of a dispatcher onto a
// single HTTP listener. Triggers register and unregister paths; the
// manager owns the server lifecycle.
type ServerManager struct {
	server   *http.Server
	handlers map[string]*Handler
	mu       sync.RWMutex
	logger   *slog.Logger
	port     int
	started  bool
	done     chan struct{}
	doneOnce sync.Once
}

func NewServerManager(port int, logger *slog.Logger) *ServerManager {
	return &ServerManager{
		handlers: make(map[string]*Handler),
		logger:   logger.With("module", "webhook_server"),
		port:     port,
		done:     make(chan struct{}),
	}
}

func (sm *ServerManager) Register(path string, handler *Handler) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.handlers[path]; exists {
		return fmt.Errorf("webhook path %s already registered", path)
	}

	sm.handlers[path] = handler
	sm.logger.Info("Registered webhook handler", "path", path, "trigger_id", handler.TriggerID)

	return nil
}

func (sm *ServerManager) Unregister(path string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if handler, exists := sm.handlers[path]; exists {
		delete(sm.handlers, path)
		sm.logger.Info("Unregistered webhook handler", "path", path, "trigger_id", handler.TriggerID)
	}
}

func (sm *ServerManager) Start(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.started {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", sm.handle)

	sm.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", sm.port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sm.logger.Info("Starting webhook HTTP server", "addr", sm.server.Addr)

		if err := sm.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sm.logger.Error("Webhook server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		if err := sm.Stop(context.Background()); err != nil {
			sm.logger.Error("Failed to stop webhook server", "error", err)
		}
	}()

	sm.started = true

	return nil
}

func (sm *ServerManager) handle(w http.ResponseWriter, r *http.Request) {
	sm.mu.RLock()
	handler, exists := sm.handlers[r.URL.Path]
	sm.mu.RUnlock()

	if !exists {
		http.Error(w, "webhook path not found", http.StatusNotFound)

		return
	}

	handler.Logger.Info("Received webhook request", "method", r.Method, "path", r.URL.Path)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)

		return
	}
	defer r.Body.Close()

	var bodyData any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &bodyData); err != nil {
			bodyData = string(body)
		}
	}

	query := make(map[string]any)
	for name, values := range r.URL.Query() {
		if len(values) == 1 {
			query[name] = values[0]
		} else {
			query[name] = values
		}
	}

	data := map[string]any{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"method":      r.Method,
		"path":        r.URL.Path,
		"query":       query,
		"body":        bodyData,
		"remote_addr": r.RemoteAddr,
	}

	go func() {
		if err := handler.Callback(context.Background(), data); err != nil {
			handler.Logger.Error("Error starting run for webhook trigger", "error", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "accepted"})
}

func (sm *ServerManager) Stop(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.started || sm.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sm.server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	sm.started = false
	sm.doneOnce.Do(func() { close(sm.done) })

	return nil
}

func (sm *ServerManager) Done() <-chan struct{} {
	return sm.done
}

func (sm *ServerManager) HandlerCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return len(sm.handlers)
}
