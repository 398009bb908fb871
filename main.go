// Command lawnmower plans mowing routes over grid yards.
//
// It supports these commands:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "solve" – plans a single yard and prints the route
//  4. "version" – prints the version
//
// Flags control host/port, yard and run directories, logging, and optional
// ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jpillora/backoff"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/lawnmower/api"
	"github.com/wricardo/lawnmower/logger"
	"github.com/wricardo/lawnmower/mower/config"
	"github.com/wricardo/lawnmower/mower/runs"
	"github.com/wricardo/lawnmower/mower/service"
	"github.com/wricardo/lawnmower/transport/mcp"
	"github.com/wricardo/lawnmower/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Lawnmower Route Planner"
)

const (
	defaultExternalURL = "http://localhost:8080"
	cleanupInterval    = time.Hour
	runRetention       = 24 * time.Hour
	syncInterval       = 5 * time.Second
)

var log = logger.Component("main")

// main loads .env, builds the command tree and runs it.
func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	cmd := rootCommand()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("command failed")
	}

	if envErr != nil && !os.IsNotExist(envErr) {
		log.WithError(envErr).Warn("error loading .env file")
	}
}

// rootCommand builds the CLI. Flags are shared by every subcommand.
func rootCommand() *cli.Command {
	return &cli.Command{
		Name:    "lawnmower",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing yard configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "runs-dir", Value: "runs", Usage: "Directory where runs are persisted (empty disables persistence)", Sources: cli.EnvVars("RUNS_DIR")},
			&cli.StringFlag{Name: "log-level", Usage: "Log level (debug, info, warn, error)", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.StringFlag{Name: "log-format", Usage: "Log format (text, json)", Sources: cli.EnvVars("LOG_FORMAT")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logger.Init(cmd.String("log-level"), cmd.String("log-format"), os.Stderr)
			return ctx, nil
		},
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, reusing a running API or starting an internal one",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: defaultExternalURL, Usage: "External API to reuse when reachable", Sources: cli.EnvVars("LAWNMOWER_API_URL")},
				},
				Action: runStdioMCP,
			},
			solveCommand(),
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// services bundles what the transports need
type services struct {
	planner     service.PlannerService
	runs        *runs.Manager
	persistence runs.RunPersistence
}

// initializeServices wires the config and run managers into the planner.
// An empty runsDir keeps runs in memory only.
func initializeServices(configDir, runsDir string, notifier service.Notifier) (*services, error) {
	configManager, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	svc := &services{}
	if runsDir != "" {
		persistence, err := runs.NewFilePersistence(runsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create run persistence: %w", err)
		}
		svc.persistence = persistence
		svc.runs = runs.NewManagerWithPersistence(persistence)

		if err := svc.runs.LoadPersistedRuns(); err != nil {
			log.WithError(err).Warn("failed to load persisted runs")
		}
	} else {
		svc.runs = runs.NewManager()
	}

	var opts []service.Option
	if notifier != nil {
		opts = append(opts, service.WithNotifier(notifier))
	}
	svc.planner = service.NewPlannerService(svc.runs, configManager, opts...)
	return svc, nil
}

// mcpHandler serves JSON-RPC MCP messages over plain HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the REST API at / and the MCP proxy at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	return mainRouter
}

// runServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	svc, err := initializeServices(cmd.String("config-dir"), cmd.String("runs-dir"), hub)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	apiServer := api.NewServer(svc.planner, hub)
	mcpClient := mcp.NewClient("http://" + addr)
	mainRouter := newRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		// solve requests with wait=true hold the connection until the search ends
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		log.WithField("addr", addr).Info("HTTP server listening")
		log.Infof("REST API: http://%s/api", addr)
		log.Infof("WebSocket: ws://%s/ws?run=<run_id>", addr)
		log.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP server shutdown error")
		}
		if err := svc.runs.SaveAllRuns(); err != nil {
			log.WithError(err).Warn("failed to save runs on shutdown")
		}
		return nil
	})

	g.Go(func() error {
		cleanupRoutine(gctx, svc.runs, cleanupInterval, runRetention)
		return nil
	})

	if svc.persistence != nil {
		g.Go(func() error {
			filesystemSyncRoutine(gctx, svc.runs, svc.persistence, syncInterval)
			return nil
		})
	}

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			runNgrok(gctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter)
			return nil
		})
	}

	err = g.Wait()
	log.Info("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done. Tunnel
// failures are logged and never stop the local server.
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.WithField("domain", domain).Info("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.WithError(err).Warn("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.WithField("url", ngrokURL).Info("ngrok tunnel established")
	log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	log.Infof("  WebSocket (ngrok): %s/ws?run=<run_id>", ngrokURL)
	log.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.WithError(err).Warn("ngrok server error")
	}
	log.Info("ngrok tunnel closed")
}

// cleanupRoutine periodically drops finished runs that have not been
// accessed within maxAge from memory.
func cleanupRoutine(ctx context.Context, manager *runs.Manager, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredRuns(maxAge); removed > 0 {
				log.WithField("count", removed).Info("cleaned up expired runs")
			}
		}
	}
}

// syncWithFilesystem removes runs from memory whose files were deleted.
// It returns the number of pruned runs.
func syncWithFilesystem(manager *runs.Manager, persistence runs.RunPersistence) int {
	pruned := 0
	for _, run := range manager.List() {
		if persistence.Exists(run.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(run.ID); err == nil {
			pruned++
			log.WithField("run_id", run.ID).Debug("pruned run from memory (file deleted)")
		}
	}
	return pruned
}

// filesystemSyncRoutine periodically syncs in-memory runs with the run directory
func filesystemSyncRoutine(ctx context.Context, manager *runs.Manager, persistence runs.RunPersistence, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := syncWithFilesystem(manager, persistence); pruned > 0 {
				log.WithField("count", pruned).Info("filesystem sync pruned orphaned runs")
			}
		}
	}
}

// apiAvailable reports whether a planner API answers at baseURL
func apiAvailable(ctx context.Context, client *http.Client, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", strings.TrimSuffix(baseURL, "/")+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// waitForAPI polls the health endpoint with exponential backoff until it
// answers or ctx is done
func waitForAPI(ctx context.Context, baseURL string) error {
	client := &http.Client{Timeout: time.Second}
	b := &backoff.Backoff{
		Min:    10 * time.Millisecond,
		Max:    500 * time.Millisecond,
		Factor: 2,
	}

	for {
		if apiAvailable(ctx, client, baseURL) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("API at %s not ready: %w", baseURL, ctx.Err())
		case <-time.After(b.Duration()):
		}
	}
}

// startInternalAPI serves the planner API on a random loopback port and
// returns its base URL once it answers health checks.
func startInternalAPI(ctx context.Context, g *errgroup.Group, planner service.PlannerService, hub *websocket.Hub) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to get available port: %w", err)
	}

	baseURL := "http://" + listener.Addr().String()
	httpServer := &http.Server{Handler: api.NewServer(planner, hub)}

	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("internal HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	readyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := waitForAPI(readyCtx, baseURL); err != nil {
		return "", err
	}
	return baseURL, nil
}

// runStdioMCP runs an MCP stdio server. It reuses an external API when one
// answers at --api-url; otherwise it starts an internal API on a random
// loopback port. Logs go to stderr since stdout carries the protocol.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	externalURL := cmd.String("api-url")
	log.WithField("url", externalURL).Info("checking for external API server")

	g, gctx := errgroup.WithContext(ctx)
	baseURL := externalURL

	if !apiAvailable(ctx, &http.Client{Timeout: 2 * time.Second}, externalURL) {
		log.Info("no external API server found, starting internal HTTP server")

		hub := websocket.NewHub()
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})

		svc, err := initializeServices(cmd.String("config-dir"), cmd.String("runs-dir"), hub)
		if err != nil {
			stop()
			g.Wait()
			return err
		}

		baseURL, err = startInternalAPI(gctx, g, svc.planner, hub)
		if err != nil {
			stop()
			g.Wait()
			return err
		}
		log.WithField("url", baseURL).Info("MCP stdio server ready (using internal HTTP server)")
	} else {
		log.WithField("url", baseURL).Info("MCP stdio server ready (using external HTTP server)")
	}

	mcpClient := mcp.NewClient(baseURL)
	serveErr := server.ServeStdio(mcpClient.GetMCPServer())

	stop()
	if err := g.Wait(); err != nil {
		log.WithError(err).Warn("internal server stopped with error")
	}
	if serveErr != nil {
		return fmt.Errorf("MCP stdio server error: %w", serveErr)
	}
	return nil
}
