// ABOUTME: Entry point for the taskmill server
// ABOUTME: Polls connected mailboxes and turns unread mail into tasks behind an HTTP API

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/taskmill/taskmill/internal/api"
	"github.com/taskmill/taskmill/internal/auth"
	"github.com/taskmill/taskmill/internal/config"
	"github.com/taskmill/taskmill/internal/credential"
	"github.com/taskmill/taskmill/internal/extract"
	"github.com/taskmill/taskmill/internal/mail"
	"github.com/taskmill/taskmill/internal/poller"
	"github.com/taskmill/taskmill/internal/secrets"
	"github.com/taskmill/taskmill/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _            _              _ _ _
| |_ __ _ ___| | ___ __ ___ (_) | |
| __/ _' / __| |/ / '_ ' _ \| | | |
| || (_| \__ \   <| | | | | | | | |
 \__\__,_|___/_|\_\_| |_| |_|_|_|_|
`

// getConfigPath returns the path to the taskmill config file.
// Priority: TASKMILL_CONFIG env var > XDG_CONFIG_HOME/taskmill/taskmill.yaml > ~/.config/taskmill/taskmill.yaml
func getConfigPath() string {
	if envPath := os.Getenv("TASKMILL_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "taskmill.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "taskmill", "taskmill.yaml")
}

// getDataPath returns the path to the taskmill data directory.
// Priority: XDG_DATA_HOME/taskmill > ~/.local/share/taskmill
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "taskmill")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: taskmill <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the server and mailbox polling loop")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check server health")
		os.Exit(1)
	}

	// Secrets commonly live in a .env next to the config.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Polling:  every %s\n", cfg.Polling.Interval)
	fmt.Println()

	logger.Info("starting taskmill",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"poll_interval", cfg.Polling.Interval,
	)

	key, err := cfg.EncryptionKey()
	if err != nil {
		return err
	}
	cipher := secrets.NewCipher(key)

	st, err := store.NewSQLiteStore(cfg.Database.Path, cipher)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Scopes:       []string{"openid", "email", gmailapi.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	classifier := extract.NewMistralClient(cfg.Mistral.APIKey, cfg.Mistral.Model)
	p := poller.New(
		st,
		credential.NewManager(st, cfg.Google.ClientID, cfg.Google.ClientSecret),
		extract.New(classifier),
		[]mail.Provider{mail.NewGmailProvider()},
		poller.Options{
			Interval:     cfg.Polling.Interval,
			MessageLimit: int64(cfg.Polling.MessageLimit),
		},
	)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: api.New(st, verifier, oauthCfg).Routes(),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	wg.Wait()
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("taskmill configuration setup")
	fmt.Println("============================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "taskmill.db")

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	fmt.Println("\n--- Google OAuth Configuration ---")
	googleClientID := prompt(reader, "Google client id (or ${GOOGLE_CLIENT_ID})", "${GOOGLE_CLIENT_ID}")
	googleClientSecret := prompt(reader, "Google client secret (or ${GOOGLE_CLIENT_SECRET})", "${GOOGLE_CLIENT_SECRET}")
	redirectURL := prompt(reader, "OAuth redirect URL", "http://"+httpAddr+"/integrations/google/callback")

	fmt.Println("\n--- Mistral Configuration ---")
	mistralKey := prompt(reader, "Mistral API key (or ${MISTRAL_API_KEY})", "${MISTRAL_API_KEY}")

	fmt.Println("\n--- Polling Configuration ---")
	pollInterval := prompt(reader, "Poll interval", "10s")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Fresh random secrets for this install.
	jwtSecret, err := randomSecret()
	if err != nil {
		return fmt.Errorf("generating jwt secret: %w", err)
	}
	encryptionKey, err := randomSecret()
	if err != nil {
		return fmt.Errorf("generating encryption key: %w", err)
	}

	var cfg strings.Builder
	cfg.WriteString("# taskmill configuration\n")
	cfg.WriteString("# Generated by taskmill init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: \"%s\"\n", jwtSecret))
	cfg.WriteString("\n")

	cfg.WriteString("secrets:\n")
	cfg.WriteString(fmt.Sprintf("  encryption_key: \"%s\"\n", encryptionKey))
	cfg.WriteString("\n")

	cfg.WriteString("google:\n")
	cfg.WriteString(fmt.Sprintf("  client_id: \"%s\"\n", googleClientID))
	cfg.WriteString(fmt.Sprintf("  client_secret: \"%s\"\n", googleClientSecret))
	cfg.WriteString(fmt.Sprintf("  redirect_url: \"%s\"\n", redirectURL))
	cfg.WriteString("\n")

	cfg.WriteString("mistral:\n")
	cfg.WriteString(fmt.Sprintf("  api_key: \"%s\"\n", mistralKey))
	cfg.WriteString("\n")

	cfg.WriteString("polling:\n")
	cfg.WriteString(fmt.Sprintf("  interval: \"%s\"\n", pollInterval))
	cfg.WriteString("  message_limit: 50\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  taskmill serve\n")

	return nil
}

func randomSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
