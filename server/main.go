package main

import (
	"flag"
	"path/filepath"

	"shelfsight/server/internal/config"
	"shelfsight/server/internal/database"
	logger "shelfsight/server/internal/logging"
	"shelfsight/server/internal/models"
	"shelfsight/server/internal/router"
	"shelfsight/server/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	projectRoot := flag.String("root", "..", "directory holding config/ and logs/")
	flag.Parse()

	// Load configuration
	v, err := config.Load(*projectRoot)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize Logger
	log, err := logger.Init(*projectRoot, config.Conf.Logging)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()
	config.Watch(v, log)
	log.Info("Configuration loaded successfully")

	// Initialize Database
	if err := database.Init(config.Conf.Database, log); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Shelf labels are optional
	var layout *models.StoreLayout
	if path := config.Conf.Analysis.LayoutFile; path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(*projectRoot, path)
		}
		layout, err = models.LoadLayout(path)
		if err != nil {
			log.Fatal("Failed to load store layout", zap.Error(err))
		}
		log.Info("Store layout loaded", zap.String("store", layout.Name), zap.Int("shelves", len(layout.Shelves)))
	}

	service := services.NewAnalysisService(log, config.Conf.Analysis, layout).
		WithObservers(logger.NewAnalysisObserver(log), logger.NewAnalysisObserver(log))

	scheduler := services.NewScheduler(log, config.Conf.Retention)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start retention scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	if config.Conf.Server.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.Setup(log, service, config.Conf)

	// Start the Gin server
	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}
