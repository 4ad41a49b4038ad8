package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stocktakehq/stocktake/internal/handlers"
	"github.com/stocktakehq/stocktake/internal/logger"
	"github.com/stocktakehq/stocktake/internal/models"
	"github.com/stocktakehq/stocktake/internal/repository"
	"github.com/stocktakehq/stocktake/internal/services"
	"github.com/stocktakehq/stocktake/internal/websocket"
	"github.com/stocktakehq/stocktake/pkg/stockapi"
)

// Config holds application configuration
type Config struct {
	DBPath   string // SQLite database path, used when RedisURL is empty
	RedisURL string // optional Redis connection URL
}

// App holds all application dependencies
type App struct {
	log      logger.Logger
	handlers *handlers.Handlers
	repo     repository.FullRepository
	form     *services.FormService
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg Config, client stockapi.Client) (*App, error) {
	var repo repository.FullRepository
	var err error
	if cfg.RedisURL != "" {
		repo, err = repository.NewRedis(cfg.RedisURL)
	} else {
		repo, err = repository.New(cfg.DBPath)
	}
	if err != nil {
		return nil, err
	}

	// A stored backend URL overrides the one from flags/env
	if url, err := repo.GetSetting(context.Background(), "backend_url"); err == nil && url != "" {
		client.SetBaseURL(url)
		log.Info("Backend URL loaded from settings", "url", url)
	}

	// Initialize services
	sessionService := services.NewSessionService(log, repo, client)
	entryService := services.NewEntryService(log, repo)
	searchService := services.NewSearchService(log, client)
	formService := services.NewFormService(log, client)

	// Initialize WebSocket hub with DI
	hub := websocket.New(log, sessionService)
	hub.Start()

	searchService.OnResults(func(query string, results []models.SearchResult) {
		hub.BroadcastSearchResults(query, results)
	})
	formService.OnChange(func(snapshot services.FormSnapshot) {
		hub.BroadcastFormState(snapshot)
	})

	// Resume the current session if one survived a restart
	if session, err := sessionService.Current(context.Background()); err == nil {
		formService.Restore(session)
		searchService.SetItemType(formService.State().ItemType)
		log.Info("Resumed floor session", "id", session.ID, "items", len(session.Items))
	}

	h := handlers.New(sessionService, entryService, searchService, formService, hub, log)

	return &App{
		log:      log,
		handlers: h,
		repo:     repo,
		form:     formService,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close performs graceful shutdown of app resources
func (a *App) Close() {
	if a.repo != nil {
		a.repo.Close()
	}
}

// Run starts the HTTP server
func (a *App) Run(addr string) error {
	ip := getPreferredIP(realNetworkProvider{})
	baseURL := fmt.Sprintf("http://%s%s", ip, addr)

	a.log.Info("Server starting", "url", baseURL)
	return http.ListenAndServe(addr, a.Router())
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IP address for LAN access.
// Prefers private network addresses (192.168.x.x, 10.x.x.x, 172.16-31.x.x).
// Falls back to localhost if no suitable address is found.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP

	for _, iface := range ifaces {
		// Skip down, loopback, and point-to-point interfaces
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			// Only consider IPv4 addresses
			if ip == nil || ip.To4() == nil {
				continue
			}

			// Skip loopback
			if ip.IsLoopback() {
				continue
			}

			candidates = append(candidates, ip)
		}
	}

	// Prefer private network addresses
	for _, ip := range candidates {
		ipStr := ip.String()
		if strings.HasPrefix(ipStr, "192.168.") ||
			strings.HasPrefix(ipStr, "10.") ||
			isPrivate172(ip) {
			return ipStr
		}
	}

	// Fall back to any non-loopback if no private address found
	if len(candidates) > 0 {
		return candidates[0].String()
	}

	return "localhost"
}

// isPrivate172 checks if IP is in 172.16.0.0/12 range
func isPrivate172(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}
