package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receiptbox/internal/extraction"
	"github.com/zombor/receiptbox/internal/logger"
	"github.com/zombor/receiptbox/internal/receipt"
	"github.com/zombor/receiptbox/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A .env file is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		slog.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

// config is the parsed command line
type config struct {
	port           int
	dbPath         string
	storageType    string
	storagePath    string
	minioEndpoint  string
	minioAccessKey string
	minioSecretKey string
	minioBucket    string
	minioUseSSL    bool
	scannerType    string
	visionKey      string
	geminiKey      string
	geminiModel    string
	ollamaURL      string
	ollamaModel    string
	ocrTimeout     int
	ocrRetries     int
	strategyName   string
	maxUploadMB    int
	authUser       string
	authPass       string
	logLevel       string
	logFormat      string
	showVersion    bool
}

func parseFlags(args []string) (config, error) {
	var cfg config
	fs := ff.NewFlagSet("receiptbox")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "receiptbox.db", "Database file path")
		storageType    = fs.StringLong("storage", "local", "Storage backend: 'local' or 'minio'")
		storagePath    = fs.StringLong("storage-path", "./receipts", "Storage directory path for local storage")
		minioEndpoint  = fs.StringLong("minio-endpoint", "localhost:9000", "MinIO/S3 endpoint (host:port)")
		minioAccessKey = fs.StringLong("minio-access-key", "", "MinIO/S3 access key")
		minioSecretKey = fs.StringLong("minio-secret-key", "", "MinIO/S3 secret key")
		minioBucket    = fs.StringLong("minio-bucket", "receipts", "MinIO/S3 bucket name")
		minioUseSSL    = fs.BoolLong("minio-use-ssl", "Use TLS for MinIO/S3")
		scannerType    = fs.StringLong("scanner", "vision", "OCR engine: 'vision', 'gemini', 'ollama' or 'none'")
		visionKey      = fs.StringLong("vision-key", "", "Google Cloud Vision API key (or set GOOGLE_VISION_API_KEY env var)")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		ocrTimeout     = fs.IntLong("ocr-timeout", 30, "Timeout in seconds for a single OCR call")
		ocrRetries     = fs.IntLong("ocr-retries", 3, "Total OCR attempts for transient failures")
		strategyName   = fs.StringLong("strategy", "cloud", "Extraction strategy: 'cloud' or 'device'")
		maxUploadMB    = fs.IntLong("max-upload-mb", 10, "Maximum upload size in megabytes")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel       = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat      = fs.StringLong("log-format", "text", "Log format: text or json")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("RECEIPTBOX"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		return cfg, fmt.Errorf("parsing flags: %w", err)
	}

	cfg = config{
		port:           *port,
		dbPath:         *dbPath,
		storageType:    *storageType,
		storagePath:    *storagePath,
		minioEndpoint:  *minioEndpoint,
		minioAccessKey: *minioAccessKey,
		minioSecretKey: *minioSecretKey,
		minioBucket:    *minioBucket,
		minioUseSSL:    *minioUseSSL,
		scannerType:    *scannerType,
		visionKey:      *visionKey,
		geminiKey:      *geminiKey,
		geminiModel:    *geminiModel,
		ollamaURL:      *ollamaURL,
		ollamaModel:    *ollamaModel,
		ocrTimeout:     *ocrTimeout,
		ocrRetries:     *ocrRetries,
		strategyName:   *strategyName,
		maxUploadMB:    *maxUploadMB,
		authUser:       *authUser,
		authPass:       *authPass,
		logLevel:       *logLevel,
		logFormat:      *logFormat,
		showVersion:    *showVersion,
	}
	return cfg, nil
}

// newScanner builds the configured OCR engine. "none" returns a nil Scanner.
func newScanner(cfg config) (scanning.Scanner, error) {
	retry := scanning.RetryConfig{
		Attempts:  cfg.ocrRetries,
		BaseDelay: time.Second,
		Timeout:   time.Duration(cfg.ocrTimeout) * time.Second,
	}

	switch cfg.scannerType {
	case "vision":
		apiKey := cfg.visionKey
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_VISION_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("vision API key is required; set --vision-key or GOOGLE_VISION_API_KEY")
		}
		slog.Info("Initializing Google Vision scanner...")
		v, err := scanning.NewVision(apiKey, retry)
		if err != nil {
			return nil, fmt.Errorf("initializing google vision: %w", err)
		}
		return v, nil
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required; set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini scanner...", "model", cfg.geminiModel)
		g, err := scanning.NewGemini(apiKey, cfg.geminiModel, retry)
		if err != nil {
			return nil, fmt.Errorf("initializing gemini: %w", err)
		}
		return g, nil
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		o, err := scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel, retry)
		if err != nil {
			return nil, fmt.Errorf("initializing ollama: %w", err)
		}
		return o, nil
	case "none":
		slog.Info("OCR disabled, receipts will need manual entry")
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid scanner type %q; valid types are vision, gemini, ollama or none", cfg.scannerType)
	}
}

func newStorage(ctx context.Context, cfg config) (receipt.Storage, error) {
	slog.Info("Initializing storage...", "type", cfg.storageType)
	switch cfg.storageType {
	case "local":
		local, err := receipt.NewLocalStorage(cfg.storagePath)
		if err != nil {
			return nil, err
		}
		return local, nil
	case "minio":
		m, err := receipt.NewMinioStorage(ctx, receipt.MinioConfig{
			Endpoint:  cfg.minioEndpoint,
			AccessKey: cfg.minioAccessKey,
			SecretKey: cfg.minioSecretKey,
			Bucket:    cfg.minioBucket,
			UseSSL:    cfg.minioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.storageType)
	}
}

// run wires the service and serves until ctx is canceled. Every resource it
// opens is released before it returns.
func run(ctx context.Context, args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return err
	}

	// Check version flag after parsing
	if cfg.showVersion {
		fmt.Println(version)
		return nil
	}

	logger.Init(logger.Config{Level: cfg.logLevel, Format: cfg.logFormat})

	strategy, err := extraction.StrategyByName(cfg.strategyName)
	if err != nil {
		return fmt.Errorf("invalid extraction strategy: %w", err)
	}

	store, err := newStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	scanner, err := newScanner(cfg)
	if err != nil {
		return err
	}
	if scanner != nil {
		defer scanner.Close()
	}

	// Initialize database
	slog.Info("Initializing database...", "path", cfg.dbPath)
	db, err := receipt.NewBoltDB(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	// Initialize service
	receiptService := receipt.NewService(db, scanner, store, receipt.Config{
		Strategy:      strategy,
		MaxUploadSize: int64(cfg.maxUploadMB) << 20,
	})

	// Initialize server
	basicAuth := receipt.BasicAuth{
		Username: cfg.authUser,
		Password: cfg.authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	addr := fmt.Sprintf(":%d", cfg.port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version, "strategy", strategy.Name)
	if cfg.authUser != "" || cfg.authPass != "" {
		slog.Info("Basic auth enabled", "user", cfg.authUser)
	}

	if err := server.Start(ctx, addr); err != nil {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("Shut down cleanly")
	return nil
}
