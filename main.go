// Command scribble runs a realtime scribble game client.
//
// It supports two modes:
//  1. "client" (default) – connects to the game server and exposes a local
//     control API, a websocket for local UIs and an /mcp HTTP endpoint
//  2. "mcp" – connects to the game server and serves MCP over stdio
//
// Flags (or the matching environment variables, optionally from .env) pick
// the server profile, the listen address, an optional state mirror (Redis or
// a directory) and optional ngrok tunneling of the control API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/scribble-client/api"
	"github.com/wricardo/scribble-client/game/config"
	"github.com/wricardo/scribble-client/game/mirror"
	"github.com/wricardo/scribble-client/game/service"
	"github.com/wricardo/scribble-client/game/store"
	"github.com/wricardo/scribble-client/transport/mcp"
	"github.com/wricardo/scribble-client/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Scribble Client"
)

const shutdownTimeout = 10 * time.Second

var logger = log15.New("module", "main")

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		logger.Crit("scribble exited", "err", err)
		os.Exit(1)
	}
}

// newCommand builds the root command
func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "scribble",
		Usage:     "Realtime scribble game client",
		Version:   Version,
		ArgsUsage: "[client|mcp]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Game server websocket URL (overrides the profile)",
				Sources: cli.EnvVars("SCRIBBLE_URL"),
			},
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "Connection profile name in the config directory",
				Sources: cli.EnvVars("SCRIBBLE_PROFILE"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "Directory containing connection profiles",
				Value:   "configs",
				Sources: cli.EnvVars("SCRIBBLE_CONFIG_DIR", "CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "http-addr",
				Usage:   "Listen address of the local control API",
				Value:   "localhost:8080",
				Sources: cli.EnvVars("SCRIBBLE_HTTP_ADDR"),
			},
			&cli.BoolFlag{
				Name:    "connect",
				Usage:   "Connect to the game server on startup",
				Value:   true,
				Sources: cli.EnvVars("SCRIBBLE_CONNECT"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("SCRIBBLE_DEBUG"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Mirror client state to this Redis (redis://host:port/db)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-prefix",
				Usage:   "Key and channel prefix for the Redis mirror",
				Value:   mirror.DefaultPrefix,
				Sources: cli.EnvVars("REDIS_PREFIX"),
			},
			&cli.StringFlag{
				Name:    "mirror-dir",
				Usage:   "Mirror client state to JSON files in this directory",
				Sources: cli.EnvVars("SCRIBBLE_MIRROR_DIR"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Expose the control API through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: run,
	}
}

// run configures logging, builds the client and starts the selected mode
func run(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd.Bool("debug"))

	mode := cmd.Args().First()
	if mode == "" {
		mode = "client"
	}

	cfg, profiles, err := loadConfig(cmd.String("config-dir"), cmd.String("profile"), cmd.String("url"))
	if err != nil {
		return err
	}

	logger.Info("starting", "app", AppName, "version", Version, "mode", mode, "url", cfg.URL)

	a := newApp(cfg, profiles)
	defer a.service.Close()

	switch mode {
	case "mcp", "stdio-mcp", "mcp-stdio":
		return runStdioMCP(ctx, a, cmd.Bool("connect"))

	case "client":
		return runClient(ctx, a, clientOptions{
			httpAddr:    cmd.String("http-addr"),
			connect:     cmd.Bool("connect"),
			redisURL:    cmd.String("redis-url"),
			redisPrefix: cmd.String("redis-prefix"),
			mirrorDir:   cmd.String("mirror-dir"),
			ngrok:       cmd.Bool("ngrok"),
			ngrokAuth:   cmd.String("ngrok-auth"),
			ngrokDomain: cmd.String("ngrok-domain"),
		})

	default:
		return fmt.Errorf("unknown mode %q: use 'client' (default) or 'mcp'", mode)
	}
}

// setupLogging sends logfmt records to stderr. Stdout stays free for MCP.
func setupLogging(debug bool) {
	lvl := log15.LvlInfo
	if debug {
		lvl = log15.LvlDebug
	}
	log15.Root().SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stderr, log15.LogfmtFormat())))
}

// loadConfig resolves the connection config: the named profile, else the
// directory's default profile, else the built-in defaults. Environment
// overrides and urlOverride are applied last. profiles is nil when dir does
// not exist.
func loadConfig(dir, profile, urlOverride string) (*config.Config, *config.Manager, error) {
	var profiles *config.Manager
	if _, err := os.Stat(dir); err == nil {
		profiles, err = config.NewManager(dir)
		if err != nil {
			return nil, nil, err
		}
	}

	var base *config.Config
	switch {
	case profile != "":
		if profiles == nil {
			return nil, nil, fmt.Errorf("profile %q requested but config directory %s does not exist", profile, dir)
		}
		cfg, err := profiles.Load(profile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load profile %q: %w", profile, err)
		}
		base = cfg
	case profiles != nil:
		base = profiles.Default()
	default:
		base = config.Default()
	}

	// Profiles are cached by the manager; work on a copy
	cfg := *base
	if err := cfg.ApplyEnv(); err != nil {
		return nil, nil, err
	}
	if urlOverride != "" {
		cfg.URL = urlOverride
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	return &cfg, profiles, nil
}

// app holds the shared client core
type app struct {
	cfg     *config.Config
	store   *store.StateStore
	router  *websocket.Router
	manager *websocket.Manager
	service *service.Client
}

// newApp wires one store, router and manager, and the service over them
func newApp(cfg *config.Config, profiles *config.Manager) *app {
	st := store.NewStateStore()
	router := websocket.NewRouter(st)
	manager := websocket.NewManager(cfg, router, st)

	var opts []service.Option
	if profiles != nil {
		opts = append(opts, service.WithProfiles(profiles))
	}

	return &app{
		cfg:     cfg,
		store:   st,
		router:  router,
		manager: manager,
		service: service.NewClient(manager, router, st, cfg.URL, opts...),
	}
}

// handler combines the control API, the UI websocket and the /mcp endpoint
func (a *app) handler(hub *websocket.Hub) http.Handler {
	apiServer := api.NewServer(a.service, hub)
	mcpClient := mcp.NewClient(a.service)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	return mainRouter
}

// mcpHandler answers one JSON-RPC message per POST
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
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

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

type clientOptions struct {
	httpAddr    string
	connect     bool
	redisURL    string
	redisPrefix string
	mirrorDir   string
	ngrok       bool
	ngrokAuth   string
	ngrokDomain string
}

// runClient runs the manager, the UI hub, the optional mirror and the HTTP
// server until ctx is done or one of them fails.
func runClient(ctx context.Context, a *app, opts clientOptions) error {
	sink, err := openSink(ctx, opts)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.manager.Run(ctx)
	})

	hub := websocket.NewHub(a.store, a.router, a.manager)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	if sink != nil {
		m := mirror.New(sink)
		m.Attach(a.store)
		g.Go(func() error {
			return m.Run(ctx)
		})
	}

	handler := a.handler(hub)
	httpServer := &http.Server{
		Addr:         opts.httpAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", opts.httpAddr)
		logger.Info("endpoints",
			"api", fmt.Sprintf("http://%s/api", opts.httpAddr),
			"ws", fmt.Sprintf("ws://%s/ws", opts.httpAddr),
			"mcp", fmt.Sprintf("http://%s/mcp", opts.httpAddr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", "err", err)
		}
		return nil
	})

	if opts.ngrok {
		g.Go(func() error {
			serveNgrok(ctx, handler, opts.ngrokAuth, opts.ngrokDomain)
			return nil
		})
	}

	if opts.connect {
		a.manager.Connect()
	}

	err = g.Wait()
	logger.Info("client stopped")
	return err
}

// openSink returns the configured mirror sink, or nil when mirroring is off.
// Redis wins when both are set.
func openSink(ctx context.Context, opts clientOptions) (mirror.Sink, error) {
	switch {
	case opts.redisURL != "":
		sink, err := mirror.NewRedisSink(ctx, opts.redisURL, opts.redisPrefix)
		if err != nil {
			return nil, err
		}
		logger.Info("mirroring state to redis", "prefix", opts.redisPrefix)
		return sink, nil

	case opts.mirrorDir != "":
		sink, err := mirror.NewFileSink(opts.mirrorDir)
		if err != nil {
			return nil, err
		}
		logger.Info("mirroring state to directory", "dir", opts.mirrorDir)
		return sink, nil
	}
	return nil, nil
}

// serveNgrok serves handler through an ngrok tunnel until ctx is done.
// Failures are logged; the local server keeps running.
func serveNgrok(ctx context.Context, handler http.Handler, authToken, domain string) {
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", "domain", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "err", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "err", err)
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established", "url", ngrokURL,
		"api", ngrokURL+"/api", "ws", ngrokURL+"/ws", "mcp", ngrokURL+"/mcp")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", "err", err)
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCP runs the manager and serves MCP over stdio until stdin closes
// or ctx is done.
func runStdioMCP(ctx context.Context, a *app, connect bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.manager.Run(ctx)
	})

	mcpClient := mcp.NewClient(a.service)
	g.Go(func() error {
		defer cancel()
		logger.Info("MCP stdio server ready")
		return server.ServeStdio(mcpClient.GetMCPServer())
	})

	if connect {
		a.manager.Connect()
	}

	return g.Wait()
}
