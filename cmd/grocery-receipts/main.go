package main

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/zombor/grocery-receipts/internal/export"
	"github.com/zombor/grocery-receipts/internal/parsing"
	"github.com/zombor/grocery-receipts/internal/receipt"
	"github.com/zombor/grocery-receipts/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// visionModel reads receipts both as whole items and as raw text
type visionModel interface {
	scanning.Scanner
	scanning.TextRecognizer
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env file is fine; flags and the environment still apply
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	fs := ff.NewFlagSet("grocery-receipts")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "grocery-receipts.db", "Database file path")
		storagePath   = fs.StringLong("storage", "./uploads", "Storage directory path")
		scannerType   = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl, bakllava)")
		minConfidence = fs.Float64Long("min-confidence", scanning.DefaultMinConfidence, "Recognized text at or below this confidence is ignored")
		exporterType  = fs.StringLong("exporter", "sheets", "Exporter type: 'sheets' or 'xlsx'")
		spreadsheetID = fs.StringLong("spreadsheet-id", "", "Google Sheets spreadsheet ID (or set GOOGLE_SHEETS_ID env var)")
		credentials   = fs.StringLong("credentials", "", "Google service account credentials file (or set GOOGLE_CREDENTIALS_PATH env var)")
		sheetRange    = fs.StringLong("sheet-range", export.DefaultSheetRange, "Range rows are appended to")
		workbookPath  = fs.StringLong("workbook", "groceries.xlsx", "XLSX workbook path for the xlsx exporter")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		parseFile     = fs.StringLong("parse", "", "Parse receipt text from a file ('-' for stdin), print the items as JSON and exit")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("GROCERY_RECEIPTS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	pipeline := parsing.NewDefault()

	if *parseFile != "" {
		if err := parseText(pipeline, *parseFile, os.Stdout); err != nil {
			slog.Error("Failed to parse receipt text", "error", err)
			os.Exit(1)
		}
		return
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize scanner based on type
	var model visionModel
	switch *scannerType {
	case "gemini":
		apiKey := firstNonEmpty(*geminiKey, os.Getenv("GEMINI_API_KEY"))
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		model, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		model, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer model.Close()

	// Initialize exporter based on type
	var exporter export.Exporter
	switch *exporterType {
	case "sheets":
		id := firstNonEmpty(*spreadsheetID, os.Getenv("GOOGLE_SHEETS_ID"))
		credentialsPath := firstNonEmpty(*credentials, os.Getenv("GOOGLE_CREDENTIALS_PATH"), "credentials.json")
		slog.Info("Initializing Google Sheets exporter...", "spreadsheet_id", id, "range", *sheetRange)
		exporter, err = newSheetsExporter(id, *sheetRange, credentialsPath)
		if err != nil {
			slog.Error("Failed to initialize Google Sheets", "error", err)
			os.Exit(1)
		}
	case "xlsx":
		slog.Info("Initializing workbook exporter...", "path", *workbookPath)
		exporter, err = export.NewWorkbook(*workbookPath, "")
		if err != nil {
			slog.Error("Failed to initialize workbook", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid exporter type", "type", *exporterType, "valid", "sheets or xlsx")
		os.Exit(1)
	}

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	receiptService := receipt.NewService(db, model, model, pipeline, exporter, store)
	receiptService.SetMinConfidence(*minConfidence)

	// Initialize server
	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// newSheetsExporter connects to Google Sheets with a service account and makes sure
// the header row exists
func newSheetsExporter(spreadsheetID, rangeName, credentialsPath string) (*export.Sheets, error) {
	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("credentials file %q: %w", credentialsPath, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exporter, err := export.NewSheets(ctx, spreadsheetID, rangeName,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, err
	}

	written, err := exporter.EnsureHeaders(ctx)
	if err != nil {
		return nil, err
	}
	if written {
		slog.Info("Wrote header row to spreadsheet", "spreadsheet_id", spreadsheetID)
	}
	return exporter, nil
}

// parseText runs the pipeline over the lines of a text file and writes the items as JSON
func parseText(pipeline *parsing.Pipeline, path string, out io.Writer) error {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		in = f
	}

	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading lines: %w", err)
	}

	items := pipeline.Run(lines, time.Now().Format("2006-01-02"))

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
