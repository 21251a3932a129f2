package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/tilepuzzle/api"
	"github.com/wricardo/tilepuzzle/game/service"
	"github.com/wricardo/tilepuzzle/game/session"
	"github.com/wricardo/tilepuzzle/logging"
	"github.com/wricardo/tilepuzzle/settings"
	"github.com/wricardo/tilepuzzle/transport/mcp"
	"github.com/wricardo/tilepuzzle/transport/websocket"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// syncInterval is how often in-memory sessions are checked against their files.
const syncInterval = 5 * time.Second

// runServe starts the HTTP server with REST API, WebSocket hub, and an /mcp
// proxy endpoint. If ngrok is enabled it also provisions a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcs, err := initializeServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svcs.close()

	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	hub := websocket.NewHub(log)
	spawn(func() { hub.Run(ctx) })
	spawn(func() { sessionCleanupRoutine(ctx, svcs.sessions, cfg.Sessions, log) })
	spawn(func() { filesystemSyncRoutine(ctx, svcs.sessions, svcs.persistence, log) })
	if cfg.Simulation.Realtime {
		spawn(func() { simulationRoutine(ctx, svcs.game, hub, cfg.Simulation.Frame, log) })
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	mcpClient := mcp.NewClient(localURL(cfg.Server), Version)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(svcs.game, hub, log))
	mainRouter.Handle("/mcp", mcpHandler(mcpClient.GetMCPServer(), log))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	spawn(func() {
		log.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", "http://"+addr+"/api"),
			zap.String("websocket", "ws://"+addr+"/ws?session=<session_id>"),
			zap.String("mcp", "http://"+addr+"/mcp"))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	})

	if cfg.Ngrok.Enabled {
		spawn(func() { runNgrok(ctx, cfg.Ngrok, cmd.String("ngrok-auth"), mainRouter, log) })
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-serveErr:
		log.Error("HTTP server failed", zap.Error(runErr))
		stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
	}

	wg.Wait()
	log.Info("server stopped")
	return runErr
}

// localURL is the address the in-process MCP client uses to reach the API.
func localURL(cfg settings.ServerConfig) string {
	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(cfg.Port)))
}

// mcpHandler answers JSON-RPC messages posted to /mcp.
func mcpHandler(mcpServer *server.MCPServer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			log.Error("failed to marshal MCP response", zap.Error(err))
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

func runNgrok(ctx context.Context, cfg settings.NgrokConfig, authToken string, handler http.Handler, log *zap.Logger) {
	if authToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	log.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Info("using custom ngrok domain", zap.String("domain", cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	url := tun.URL()
	log.Info("ngrok tunnel established",
		zap.String("url", url),
		zap.String("api", url+"/api"),
		zap.String("mcp", url+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Warn("ngrok server error", zap.Error(err))
	}
	log.Info("ngrok tunnel closed")
}

// simulationRoutine advances every session on the server clock and pushes
// the sessions that changed to their WebSocket watchers.
func simulationRoutine(ctx context.Context, svc service.GameService, hub *websocket.Hub, frame time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			results, err := svc.AdvanceAll(ctx, elapsed)
			if err != nil {
				log.Warn("advance failed", zap.Error(err))
				continue
			}
			broadcastChanged(hub, results)
		}
	}
}

func broadcastChanged(hub *websocket.Hub, results []*service.AdvanceResult) int {
	sent := 0
	for _, r := range results {
		if r == nil || !r.Changed || r.GameState == nil {
			continue
		}
		hub.BroadcastToSession(r.SessionID, r.GameState)
		for _, ev := range r.Events {
			hub.BroadcastEvent(r.SessionID, ev.Type, ev)
		}
		sent++
	}
	return sent
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, cfg settings.SessionsConfig, log *zap.Logger) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(cfg.MaxAge); removed > 0 {
				log.Info("cleaned up expired sessions", zap.Int("removed", removed))
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory whose file was deleted.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence *session.FilePersistence, log *zap.Logger) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneDeleted(manager, persistence, log)
		}
	}
}

func pruneDeleted(manager *session.Manager, persistence *session.FilePersistence, log *zap.Logger) int {
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			log.Debug("pruned session whose file was deleted", zap.String("session", s.ID))
		}
	}
	if pruned > 0 {
		log.Info("filesystem sync pruned sessions", zap.Int("pruned", pruned))
	}
	return pruned
}

// runStdioMCP runs an MCP stdio server. It reuses an API already listening
// on the configured port; otherwise it starts an internal HTTP API bound to
// a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	// stdout carries the protocol
	log, err := logging.NewStderr(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseURL := localURL(cfg.Server)
	log.Info("checking for external API server", zap.String("url", baseURL))

	if !apiAvailable(ctx, baseURL) {
		log.Info("no external API server found, starting internal HTTP server")

		svcs, err := initializeServices(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer svcs.close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub(log)
		go hub.Run(ctx)
		if cfg.Simulation.Realtime {
			go simulationRoutine(ctx, svcs.game, hub, cfg.Simulation.Frame, log)
		}

		httpServer := &http.Server{Handler: api.NewServer(svcs.game, hub, log)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		log.Info("internal HTTP server started", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL, Version)
	log.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether a tile puzzle API answers at baseURL.
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
