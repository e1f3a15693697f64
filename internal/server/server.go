package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/strefethen/tascam-hub-go/internal/api"
	"github.com/strefethen/tascam-hub-go/internal/audit"
	"github.com/strefethen/tascam-hub-go/internal/config"
	"github.com/strefethen/tascam-hub-go/internal/db"
	"github.com/strefethen/tascam-hub-go/internal/scheduler"
	"github.com/strefethen/tascam-hub-go/internal/stream"
	"github.com/strefethen/tascam-hub-go/internal/tascam"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware logs all incoming HTTP requests
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, wrapped.status, time.Since(start).Round(time.Millisecond))
	})
}

// Options controls server wiring.
type Options struct {
	// SkipInitialConnect leaves the first connection attempt to the
	// driver's heartbeat. Only used by tests.
	SkipInitialConnect bool
}

// NewHandler builds the HTTP handler and returns a shutdown function.
func NewHandler(cfg config.Config, options Options) (http.Handler, func(context.Context) error, error) {
	log.Printf("Using database: %s", cfg.SQLiteDBPath)
	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware)
	router.Use(api.RequestIDMiddleware)
	router.Use(api.RecovererMiddleware)

	driver := tascam.New(cfg.TascamHost, cfg.TascamMAC, tascam.Options{Port: cfg.TascamPort})
	if !options.SkipInitialConnect {
		if driver.Connect() {
			log.Printf("Player reachable at %s", cfg.TascamHost)
		} else {
			log.Printf("Player offline, heartbeat will keep retrying")
		}
	}

	var auditService *audit.Service
	var recorder tascam.CommandRecorder
	if cfg.AuditEnabled {
		auditService = audit.NewService(dbPair, cfg.AuditRetentionDays, nil)
		audit.RegisterRoutes(router, auditService)
		auditService.StartPruneJob()

		bridge := &auditBridge{service: auditService}
		recorder = bridge
		driver.RegisterSubscriber(bridge.wireEvent, "")
		bridge.startup()
	}

	registerHealthRoutes(router, driver)
	tascam.RegisterRoutes(router, driver, recorder)
	stream.RegisterRoutes(router, driver, nil)

	runner, err := scheduler.NewRunner(nil, driver, cfg.PowerOnCron, cfg.PowerOffCron)
	if err != nil {
		if auditService != nil {
			auditService.StopPruneJob()
		}
		driver.Disconnect()
		dbPair.Close()
		return nil, nil, err
	}
	if auditService != nil {
		bridge := &auditBridge{service: auditService}
		runner.OnResult = bridge.routineResult
	}
	runner.Start()

	shutdown := func(ctx context.Context) error {
		done := make(chan error, 1)
		go func() {
			runner.Stop()
			if auditService != nil {
				auditService.StopPruneJob()
			}
			driver.Disconnect()
			done <- dbPair.Close()
		}()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return router, shutdown, nil
}

func registerHealthRoutes(router chi.Router, driver *tascam.Controller) {
	router.Method(http.MethodGet, "/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		response := map[string]any{
			"status":    "healthy",
			"service":   "tascam-hub",
			"connected": driver.IsConnected(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		return api.WriteJSON(w, http.StatusOK, response)
	}))
	router.Method(http.MethodGet, "/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
}

// auditBridge translates driver and scheduler activity into event log
// records.
type auditBridge struct {
	service *audit.Service
}

// wireEvent receives every bus event from the driver, including the
// synthesized on/off markers.
func (b *auditBridge) wireEvent(event string) {
	input := audit.WriteEventInput{
		Type:    string(audit.EventRawMessage),
		Message: event,
	}

	switch {
	case event == "!7SSTON":
		input.Type = string(audit.EventConnectionOpened)
		input.Message = "Player connection established"
	case event == "!7SSTOFF":
		input.Type = string(audit.EventConnectionLost)
		input.Message = "Player connection lost"
	default:
		level := audit.EventLevelDebug
		input.Level = &level
	}

	b.record(input)
}

// RecordCommand implements tascam.CommandRecorder.
func (b *auditBridge) RecordCommand(requestID, command string, success bool) {
	input := audit.WriteEventInput{
		Type:    string(audit.EventCommandSent),
		Command: &command,
		Message: "Command acknowledged",
	}
	if requestID != "" {
		input.RequestID = &requestID
	}
	if !success {
		level := audit.EventLevelWarn
		input.Type = string(audit.EventCommandFailed)
		input.Level = &level
		input.Message = "Command rejected or timed out"
	}

	b.record(input)
}

// routineResult receives scheduler outcomes.
func (b *auditBridge) routineResult(name string, success bool) {
	eventType := audit.EventPowerOn
	if strings.Contains(name, "off") {
		eventType = audit.EventPowerOff
	}

	input := audit.WriteEventInput{
		Type:    string(eventType),
		Message: "Scheduled " + name + " routine fired",
		Payload: map[string]any{"success": success},
	}
	if !success {
		level := audit.EventLevelWarn
		input.Level = &level
	}

	b.record(input)
}

func (b *auditBridge) startup() {
	b.record(audit.WriteEventInput{
		Type:    string(audit.EventSystemStartup),
		Message: "Hub started",
	})
}

// record writes asynchronously so bus delivery never waits on SQLite.
func (b *auditBridge) record(input audit.WriteEventInput) {
	go func() {
		if _, err := b.service.RecordEvent(input); err != nil {
			log.Printf("event log write failed: %v", err)
		}
	}()
}
