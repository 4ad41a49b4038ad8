package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/stocktakehq/stocktake/internal/app"
	"github.com/stocktakehq/stocktake/internal/logger"
	"github.com/stocktakehq/stocktake/pkg/stockapi"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	red    = "\033[31m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var (
	version = "dev"
)

// showStartupLogo prints the StockTake banner
func showStartupLogo() {
	width := 62
	border := ""
	for i := 0; i < width; i++ {
		border += "═"
	}

	logo := []string{
		"   ____  _             _    _____     _                  ",
		"  / ___|| |_ ___   ___| | _|_   _|_ _| | _____           ",
		"  \\___ \\| __/ _ \\ / __| |/ / | |/ _` | |/ / _ \\          ",
		"   ___) | || (_) | (__|   <  | | (_| |   <  __/          ",
		"  |____/ \\__\\___/ \\___|_|\\_\\ |_|\\__,_|_|\\_\\___|          ",
		"                                                         ",
	}

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		for len(line) < width {
			line += " "
		}
		fmt.Printf("  %s║%s%s%s║%s\n", cyan, yellow, line, cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n\n", cyan, border, reset)
}

// cycleLogLevel cycles through debug -> info -> warn -> error
func cycleLogLevel(appLog *logger.SlogLogger) {
	current := appLog.GetLevel()
	var next string

	switch current.String() {
	case "DEBUG":
		next = "info"
	case "INFO":
		next = "warn"
	case "WARN":
		next = "error"
	case "ERROR":
		next = "debug"
	default:
		next = "info"
	}

	appLog.SetLevel(logger.ParseLevel(next))
	fmt.Printf("%sLog level: %s%s%s\n", green, yellow, next, reset)
}

// printKeyboardHelp displays all available keyboard shortcuts
func printKeyboardHelp() {
	fmt.Printf("\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	fmt.Printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Printf("    %sq%s      - Quit server\n", cyan, reset)
	fmt.Printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	port := flag.Int("port", 8090, "HTTP server port")
	dbPath := flag.String("db", "stocktake.db", "SQLite database path")
	redisURL := flag.String("redis", os.Getenv("REDIS_URL"), "Redis URL (uses SQLite when empty)")
	backendURL := flag.String("backend", os.Getenv("STOCKTAKE_BACKEND_URL"), "Stock-take backend base URL")
	backendToken := flag.String("token", os.Getenv("STOCKTAKE_BACKEND_TOKEN"), "Backend bearer token")
	logLevel := flag.String("loglevel", "info", "Log level (debug, info, warn, error)")
	noKeyboard := flag.Bool("nokeyboard", false, "Disable keyboard shortcuts")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `StockTake - Warehouse Stock-Take Entry Service

Usage:
  stocktake [options]

Options:
  -port int      HTTP server port (default 8090)
  -db string     SQLite database path (default "stocktake.db")
  -redis string  Redis URL, e.g. redis://localhost:6379/0 (uses SQLite when empty)
  -backend str   Stock-take backend base URL (or STOCKTAKE_BACKEND_URL)
  -token str     Backend bearer token (or STOCKTAKE_BACKEND_TOKEN)
  -loglevel str  Log level: debug, info, warn, error (default "info")
  -nokeyboard    Disable keyboard shortcuts
  -version       Show version and exit
  -help          Show this help message

Keyboard Shortcuts (when enabled):
  h              Toggle HTTP request logging
  l              Cycle log level (debug → info → warn → error)
  q              Quit server
  ?              Show keyboard help

Examples:
  stocktake                                  # Run on port 8090 with stocktake.db
  stocktake -port 8080                       # Run on port 8080
  stocktake -redis redis://localhost:6379/0  # Store sessions in Redis
  stocktake -backend https://api.example.com # Point at the backend service

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("stocktake %s\n", version)
		os.Exit(0)
	}

	showStartupLogo()

	// Create logger with specified level
	appLog := logger.NewWithLevel(logger.ParseLevel(*logLevel))

	// Create backend client
	client := stockapi.NewHTTPClient(*backendURL, appLog)
	if *backendToken != "" {
		client.SetToken(*backendToken)
	}

	a, err := app.New(appLog, app.Config{DBPath: *dbPath, RedisURL: *redisURL}, client)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}
	defer a.Close()

	addr := fmt.Sprintf(":%d", *port)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Run(addr)
	}()

	// Print keyboard shortcuts and start listener (unless disabled)
	if !*noKeyboard {
		printKeyboardHelp()
		go listenForKeyboard(appLog)
	} else {
		fmt.Printf("\n%sKeyboard shortcuts disabled (use -nokeyboard=false to enable)%s\n\n", yellow, reset)
	}

	if err := <-serverErr; err != nil {
		log.Fatal(err)
	}
}
