package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"bookhub/internal/auth"
	"bookhub/internal/cache"
	"bookhub/internal/crawler"
	"bookhub/internal/feed"
	"bookhub/internal/match"
	"bookhub/internal/platform"
	"bookhub/internal/resolver"
	"bookhub/internal/search"
	"bookhub/pkg/database"
	"bookhub/pkg/utils"
)

func main() {
	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	crawlCfg, err := utils.LoadCrawlConfig()
	if err != nil {
		log.Fatalf("crawl config failed: %v", err)
	}

	registry, err := platform.Default(crawlCfg)
	if err != nil {
		log.Fatalf("platform registry failed: %v", err)
	}

	matcher := match.New(crawlCfg.ExclusionMarkers, crawlCfg.MinMatchScore)
	orch := crawler.New(registry, matcher, crawlCfg.AdapterTimeout())

	var aladin *platform.Aladin
	if a, ok := registry.Get("aladin"); ok {
		aladin, _ = a.(*platform.Aladin)
	}
	lookup := resolver.NewISBNLookup(crawlCfg.UserAgent, os.Getenv("GOOGLE_BOOKS_API_KEY"), crawlCfg.AdapterTimeout())
	res := resolver.New(aladin, matcher, lookup)

	router := gin.Default()

	// Optional: avoid "trusted all proxies" warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Start the TCP feed first (so you notice binding errors early)
	hub := feed.NewHub()
	router.GET("/ws", feed.WSHandler(hub))
	tcpSrv := feed.NewServer(":7070", hub)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":        "not_ready",
				"db_error":      err.Error(),
				"tcp_observers": stats.TCPObservers,
				"ws_observers":  stats.WSObservers,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":        "ready",
			"db":            "ok",
			"tcp_observers": stats.TCPObservers,
			"ws_observers":  stats.WSObservers,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		stats := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db":            dbCfg.Path,
			"platforms":     registry.IDs(),
			"tcp_observers": stats.TCPObservers,
			"ws_observers":  stats.WSObservers,
		})
	})

	// Search (public)
	gateway := cache.New(db)
	svc := search.NewService(orch, gateway, res, registry, hub)
	searchHandler := search.NewHandler(svc)
	searchHandler.RegisterRoutes(router.Group("/api"))

	// Auth
	tokenSvc := auth.NewTokenService(utils.LoadAuthConfig())
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Protected routes
	protected := router.Group("/api")
	protected.Use(auth.AuthMiddleware(tokenSvc))
	searchHandler.RegisterProtectedRoutes(protected)

	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		u, err := authRepo.GetByID(c.Request.Context(), claims.UserID())
		if err != nil || u == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":       u.ID,
			"username": u.Username,
			"email":    u.Email,
		})
	})

	httpSrv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("HTTP API server listening on :8080")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
