package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/cmsjade5000/WardrobeManager/internal/catalog"
	"github.com/cmsjade5000/WardrobeManager/internal/config"
	"github.com/cmsjade5000/WardrobeManager/internal/handlers"
	"github.com/cmsjade5000/WardrobeManager/internal/importer"
	"github.com/cmsjade5000/WardrobeManager/internal/metrics"
	"github.com/cmsjade5000/WardrobeManager/internal/storage"
	"github.com/cmsjade5000/WardrobeManager/internal/transform"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	cfg := config.FromEnv()

	if cfg.DatabaseURL == "" {
		log.Fatalf("WARDROBE_DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	cancelPing()

	store, err := catalog.NewPostgresStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize catalog store: %v", err)
	}

	imageStore, err := storage.NewImageStore(cfg.StorageDir, cfg.ImageURLPrefix)
	if err != nil {
		log.Fatalf("Failed to initialize image storage: %v", err)
	}
	log.Printf("✓ Image storage ready: %s", cfg.StorageDir)

	// Background removal needs a segmentation service; without one the
	// pipeline composites the original photo onto the gradient canvas.
	var segmenter transform.Segmenter
	if cfg.SegmenterURL != "" {
		segmenter = transform.NewHTTPSegmenter(cfg.SegmenterURL, cfg.SegmenterModel)
		log.Printf("✓ Segmentation backend: %s (model: %s)", cfg.SegmenterURL, cfg.SegmenterModel)
	} else {
		log.Printf("No SEGMENTER_URL configured - background removal disabled")
	}

	gradientTop, err := transform.ParseHexColor(cfg.GradientTop)
	if err != nil {
		log.Fatalf("Invalid GRADIENT_TOP: %v", err)
	}
	gradientBottom, err := transform.ParseHexColor(cfg.GradientBottom)
	if err != nil {
		log.Fatalf("Invalid GRADIENT_BOTTOM: %v", err)
	}

	processor := transform.NewProcessor(segmenter, imageStore, transform.Options{
		RemoveBackground: cfg.RemoveBackground,
		CanvasWidth:      cfg.CanvasWidth,
		CanvasHeight:     cfg.CanvasHeight,
		Brightness:       cfg.Brightness,
		Saturation:       cfg.Saturation,
		GradientTop:      gradientTop,
		GradientBottom:   gradientBottom,
	})

	m := metrics.New()

	manager := importer.NewManager(store, processor, m, importer.ManagerConfig{
		QueueCapacity: cfg.QueueCapacity,
		JobTTL:        cfg.JobTTL,
		EvictInterval: cfg.EvictInterval,
	})

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	manager.Start(workerCtx)
	log.Printf("✓ Import worker started (queue capacity: %d, job TTL: %s)", cfg.QueueCapacity, cfg.JobTTL)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Handle("/metrics", m.Handler())
	r.Handle(cfg.ImageURLPrefix+"/*", http.StripPrefix(cfg.ImageURLPrefix+"/", http.FileServer(http.Dir(cfg.StorageDir))))

	importHandler := handlers.NewImportHandler(manager, imageStore)
	importHandler.Register(r)
	log.Printf("✓ Registered import endpoints")

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Wardrobe server starting on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// handleHealth returns health status
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}
