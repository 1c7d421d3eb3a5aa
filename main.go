// Command vraze serves arcade race sessions.
//
// Without arguments, or with "server", it listens on -host:-port and serves
// the REST API under /api, live race updates on /ws and an MCP endpoint on
// /mcp. With "stdio-mcp" it speaks MCP over stdin and stdout instead. It
// drives a server already listening on localhost:8080, or a private one
// started on a loopback port when none answers.
//
// Tracks are read from -config-dir and sessions are kept in -sessions-dir so
// races survive a restart. -ngrok also publishes the HTTP server through a
// tunnel.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/andialuis/VRaze/api"
	"github.com/andialuis/VRaze/game/config"
	"github.com/andialuis/VRaze/game/service"
	"github.com/andialuis/VRaze/game/session"
	"github.com/andialuis/VRaze/transport/mcp"
	"github.com/andialuis/VRaze/transport/websocket"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

const (
	Version = "1.0.0"
	AppName = "VRaze Race Server"
)

const (
	// externalAPI is where stdio-mcp looks for a running race server.
	externalAPI = "http://localhost:8080"

	sessionMaxAge     = 24 * time.Hour
	sessionSweepEvery = time.Hour
	sessionSyncEvery  = 5 * time.Second
)

var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", getConfigDirDefault(), "Directory containing track configurations")
	sessionsDir  = flag.String("sessions-dir", getSessionsDirDefault(), "Directory where race sessions are persisted")
	debug        = flag.Bool("debug", false, "Log source file and line")
	version      = flag.Bool("version", false, "Print the version and exit")
	ngrokEnabled = flag.Bool("ngrok", false, "Publish the HTTP server through an ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or NGROK_AUTHTOKEN)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Reserved ngrok domain (optional)")
)

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// getConfigDirDefault honors CONFIG_DIR, then falls back to "configs".
func getConfigDirDefault() string {
	return envOr("CONFIG_DIR", "configs")
}

// getSessionsDirDefault honors SESSIONS_DIR, then falls back to "sessions".
func getSessionsDirDefault() string {
	return envOr("SESSIONS_DIR", "sessions")
}

func init() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(out, "Usage: %s [OPTIONS] [server|stdio-mcp]\n\n", os.Args[0])
		fmt.Fprintln(out, "Modes:")
		fmt.Fprintln(out, "  server     REST API, race updates on /ws and MCP on /mcp (default, alias: http)")
		fmt.Fprintln(out, "  stdio-mcp  MCP over stdin/stdout (aliases: mcp-stdio, mcp)")
		fmt.Fprintln(out, "\nOptions:")
		flag.PrintDefaults()
		fmt.Fprintln(out, "\nExamples:")
		fmt.Fprintf(out, "  %s -port 9090\n", os.Args[0])
		fmt.Fprintf(out, "  %s -config-dir tracks -sessions-dir /var/lib/vraze\n", os.Args[0])
		fmt.Fprintf(out, "  %s stdio-mcp\n", os.Args[0])
	}
}

func main() {
	switch err := godotenv.Load(); {
	case err == nil:
		log.Println("Loaded environment from .env")
	case !os.IsNotExist(err):
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		return
	}

	log.SetFlags(log.LstdFlags)
	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	mode := "server"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}
	log.Printf("Starting %s v%s (mode: %s)", AppName, Version, mode)

	raceService, sessionManager, err := initializeServices()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		serveStdioMCP(raceService)

	case "server", "http":
		serveHTTP(raceService)
		if err := sessionManager.SaveAllSessions(); err != nil {
			log.Printf("Warning: Failed to save sessions on shutdown: %v", err)
		}

	default:
		log.Fatalf("Unknown mode %q, expected server or stdio-mcp", mode)
	}
}

// initializeServices loads the tracks, restores persisted sessions and starts
// the session upkeep goroutine.
func initializeServices() (service.RaceService, *session.Manager, error) {
	configManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	log.Printf("Default track: %s", configManager.GetDefaultID())

	persistence, err := session.NewFilePersistence(*sessionsDir, configManager)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}

	go maintainSessions(sessionManager, persistence)

	return service.NewRaceService(sessionManager, configManager), sessionManager, nil
}

// maintainSessions expires idle sessions and forgets sessions whose files
// were removed from the sessions directory.
func maintainSessions(manager *session.Manager, persistence session.SessionPersistence) {
	sweep := time.NewTicker(sessionSweepEvery)
	defer sweep.Stop()
	fileSync := time.NewTicker(sessionSyncEvery)
	defer fileSync.Stop()

	for {
		select {
		case <-sweep.C:
			if n := manager.CleanupExpiredSessions(sessionMaxAge); n > 0 {
				log.Printf("Expired %d idle sessions", n)
			}

		case <-fileSync.C:
			pruned := 0
			for _, sess := range manager.List() {
				if persistence.Exists(sess.ID) {
					continue
				}
				if err := manager.DeleteFromMemory(sess.ID); err == nil {
					log.Printf("Session %s file was removed, dropping it", sess.ID)
					pruned++
				}
			}
			if pruned > 0 {
				log.Printf("Dropped %d sessions without a file", pruned)
			}
		}
	}
}

// raceHandler serves the API and websocket routes, plus /mcp when selfURL is
// set. The MCP tools call back into the API at selfURL.
func raceHandler(raceService service.RaceService, selfURL string) http.Handler {
	hub := websocket.NewHub()
	go hub.Run()

	mux := http.NewServeMux()
	mux.Handle("/", api.NewServer(raceService, hub))
	if selfURL != "" {
		mux.HandleFunc("/mcp", mcpEndpoint(mcp.NewClient(selfURL)))
	}
	return mux
}

// mcpEndpoint answers one JSON-RPC message per POST.
func mcpEndpoint(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}

		reply, err := json.Marshal(client.GetMCPServer().HandleMessage(r.Context(), body))
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(reply)
	}
}

// serveHTTP runs the race server, and the tunnel when enabled, until SIGINT
// or SIGTERM.
func serveHTTP(raceService service.RaceService) {
	addr := fmt.Sprintf("%s:%d", *host, *port)
	handler := raceHandler(raceService, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Race server listening on http://%s (API /api, updates /ws, MCP /mcp)", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if token, domain, ok := tunnelSettings(); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serveTunnel(ctx, handler, token, domain); err != nil {
				log.Printf("Ngrok tunnel: %v", err)
			}
		}()
	}

	log.Printf("Received %v, shutting down", <-stop)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
}

// tunnelSettings resolves the ngrok flags and their environment fallbacks.
// ok is false when the tunnel is off or has no auth token.
func tunnelSettings() (token, domain string, ok bool) {
	enabled := *ngrokEnabled
	if v := os.Getenv("NGROK_ENABLED"); v == "true" || v == "1" {
		enabled = true
	}
	if !enabled {
		return "", "", false
	}

	token = *ngrokAuth
	if token == "" {
		token = envOr("NGROK_AUTHTOKEN", os.Getenv("NGROK_AUTH_TOKEN"))
	}
	if token == "" {
		log.Println("Warning: ngrok enabled without an auth token (-ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return "", "", false
	}

	domain = *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}
	return token, domain, true
}

// serveTunnel serves handler through ngrok until ctx is cancelled.
func serveTunnel(ctx context.Context, handler http.Handler, token, domain string) error {
	endpoint := ngrokConfig.HTTPEndpoint()
	if domain != "" {
		endpoint = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	}

	tun, err := ngrok.Listen(ctx, endpoint, ngrok.WithAuthtoken(token))
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer tun.Close()

	log.Printf("Ngrok tunnel up: %s (API %[1]s/api, updates %[1]s/ws, MCP %[1]s/mcp)", tun.URL())

	go func() {
		<-ctx.Done()
		tun.Close()
	}()
	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		return err
	}
	log.Println("Ngrok tunnel closed")
	return nil
}

// serveStdioMCP speaks MCP on stdin/stdout until the client goes away.
func serveStdioMCP(raceService service.RaceService) {
	baseURL := externalAPI
	if !apiHealthy(externalAPI) {
		var err error
		baseURL, err = startLoopbackAPI(raceService)
		if err != nil {
			log.Fatalf("Failed to start internal API: %v", err)
		}
		log.Printf("No race server at %s, MCP uses internal API at %s", externalAPI, baseURL)
	} else {
		log.Printf("MCP uses race server at %s", externalAPI)
	}

	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		log.Fatalf("MCP stdio server error: %v", err)
	}
}

func apiHealthy(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startLoopbackAPI serves the race API on a random 127.0.0.1 port.
func startLoopbackAPI(raceService service.RaceService) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}

	srv := &http.Server{Handler: raceHandler(raceService, "")}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Internal API server error: %v", err)
		}
	}()
	return "http://" + listener.Addr().String(), nil
}
