package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rcarmo/go-tga/internal/cache"
	"github.com/rcarmo/go-tga/internal/config"
	"github.com/rcarmo/go-tga/internal/handler"
	"github.com/rcarmo/go-tga/internal/logging"
	"github.com/rcarmo/go-tga/web"
)

const (
	appName    = "TGA Preview Server"
	appVersion = "v1.0.0"
)

const shutdownTimeout = 10 * time.Second

type parsedArgs struct {
	host       string
	port       string
	logLevel   string
	configFile string
}

func main() {
	args, action := parseFlags()
	switch action {
	case "help":
		showHelp()
		return
	case "version":
		showVersion()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, args); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func parseFlags() (parsedArgs, string) {
	return parseFlagsWithArgs(os.Args[1:])
}

func parseFlagsWithArgs(arguments []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	hostFlag := fs.String("host", "", "TGA preview server host")
	portFlag := fs.String("port", "", "TGA preview server port")
	logLevelFlag := fs.String("log-level", "", "log level (debug, info, warn, error)")
	configFlag := fs.String("config", "", "path to a YAML configuration file")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	if err := fs.Parse(arguments); err != nil {
		return parsedArgs{}, "help"
	}

	if *helpFlag {
		return parsedArgs{}, "help"
	}

	if *versionFlag {
		return parsedArgs{}, "version"
	}

	return parsedArgs{
		host:       strings.TrimSpace(*hostFlag),
		port:       strings.TrimSpace(*portFlag),
		logLevel:   strings.TrimSpace(*logLevelFlag),
		configFile: strings.TrimSpace(*configFlag),
	}, ""
}

func run(ctx context.Context, args parsedArgs) error {
	cfg, err := config.LoadWithOverrides(config.LoadOptions{
		Host:       args.host,
		Port:       args.port,
		LogLevel:   args.logLevel,
		ConfigFile: args.configFile,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := setupLogging(cfg.Logging); err != nil {
		return err
	}

	var c *cache.Cache
	if cfg.Cache.Enabled {
		c, err = cache.Open(cfg.Cache.Path, cfg.Cache.CompressionLevel)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer c.Close()
		logging.Info("texture cache at %s", cfg.Cache.Path)
	}

	server, err := createServer(cfg, c)
	if err != nil {
		return err
	}
	logging.Info("starting server on %s:%s (TLS=%t)", cfg.Server.Host, cfg.Server.Port, cfg.Security.EnableTLS)

	errCh := make(chan error, 1)
	go func() {
		errCh <- startServer(server, cfg)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return <-errCh
}

func createServer(cfg *config.Config, c *cache.Cache) (*http.Server, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	dist, err := web.DistFS()
	if err != nil {
		return nil, fmt.Errorf("web assets: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(dist)))
	handler.New(cfg, c).Register(mux)

	h := applySecurityMiddleware(mux, cfg)
	h = requestLoggingMiddleware(h)

	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, nil
}

func applySecurityMiddleware(next http.Handler, cfg *config.Config) http.Handler {
	if cfg == nil {
		return securityHeadersMiddleware(corsMiddleware(next, nil))
	}

	h := corsMiddleware(next, cfg.Security.AllowedOrigins)
	h = securityHeadersMiddleware(h)

	return h
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// Allow inline scripts/styles and WASM for the single-page UI
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline' 'wasm-unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' blob: data:; connect-src 'self' ws: wss:")

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if isOriginAllowed(origin, allowedOrigins, r.Host) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Expose-Headers", "X-Image-Width, X-Image-Height, X-Image-Layout")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isOriginAllowed(origin string, allowedOrigins []string, host string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}

	if len(allowedOrigins) == 0 {
		return strings.Contains(origin, host)
	}

	return false
}

func setupLogging(cfg config.LoggingConfig) error {
	return logging.Configure(logging.Options{
		Level:  cfg.Level,
		Format: cfg.Format,
		File:   cfg.File,
		Caller: cfg.EnableCaller,
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the
// underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Info("%s %s %s %d %s", r.RemoteAddr, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func startServer(server *http.Server, cfg *config.Config) error {
	if server == nil {
		return fmt.Errorf("server is nil")
	}

	var err error
	if cfg != nil && cfg.Security.EnableTLS {
		server.TLSConfig = &tls.Config{MinVersion: tlsVersion(cfg.Security.MinTLSVersion)}
		err = server.ListenAndServeTLS(cfg.Security.TLSCertFile, cfg.Security.TLSKeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func showHelp() {
	fmt.Println(appName)
	fmt.Println("USAGE: tga-server [options]")
	fmt.Println("OPTIONS:")
	fmt.Println("  -host               Set server listen host (default 0.0.0.0)")
	fmt.Println("  -port               Set server listen port (default 8080)")
	fmt.Println("  -log-level          Set log level (debug, info, warn, error)")
	fmt.Println("  -config             Load settings from a YAML file")
	fmt.Println("  -version            Show version information")
	fmt.Println("  -help               Show this help message")
	fmt.Println("ENVIRONMENT VARIABLES: SERVER_HOST, SERVER_PORT, LOG_LEVEL, CONFIG_FILE, DECODER_ORIENTATION, CACHE_ENABLED, CACHE_PATH")
	fmt.Println("EXAMPLES: tga-server -host 0.0.0.0 -port 8080 -config tga.yaml")
}

func showVersion() {
	fmt.Printf("%s %s\n", appName, appVersion)
	fmt.Println("Formats: TGA types 1, 2, 3, 9, 10, 11")
}
