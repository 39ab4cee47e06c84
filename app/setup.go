package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/university-explorer/api"
	"github.com/sahilchouksey/university-explorer/config"
	"github.com/sahilchouksey/university-explorer/database"
	"github.com/sahilchouksey/university-explorer/router"
	"github.com/sahilchouksey/university-explorer/services"
	"github.com/sahilchouksey/university-explorer/services/cron"
	"github.com/sahilchouksey/university-explorer/services/spaces"
	"github.com/sahilchouksey/university-explorer/services/wikimedia"
	"github.com/sahilchouksey/university-explorer/utils"
	"github.com/sahilchouksey/university-explorer/utils/cache"
	"github.com/sahilchouksey/university-explorer/utils/middleware"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		log.Warnw("No .env file loaded", "error", err)
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	logCloser, err := utils.SetupLogger(getEnv.LOG_LEVEL, getEnv.LOG_FILE)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		print("If not running, run the following command:\n")
		print("  make docker-up   (for Docker setup)\n")
		print("  make db-up       (for local PostgreSQL)\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		print("Error running migrations:\n")
		return err
	}

	// Redis is optional; without it every image lookup goes upstream
	var imageCache services.ImageCache
	if getEnv.REDIS_URL != "" {
		redisCache, err := cache.NewRedisCache(getEnv.REDIS_URL, "university-explorer")
		if err != nil {
			log.Warnw("Failed to connect to Redis, image cache disabled", "error", err)
		} else {
			imageCache = redisCache
			defer redisCache.Close()
		}
	}

	wiki := wikimedia.NewClient(wikimedia.Config{
		WikiAPIURL:    getEnv.WIKI_API_URL,
		CommonsAPIURL: getEnv.COMMONS_API_URL,
		CallTimeout:   getEnv.IMAGE_CALL_TIMEOUT,
	})
	imageService := services.NewImageService(wiki, imageCache, services.ImageServiceConfig{
		MaxCandidates: getEnv.IMAGE_MAX_CANDIDATES,
		TotalBudget:   getEnv.IMAGE_TOTAL_BUDGET,
		CacheTTL:      getEnv.IMAGE_CACHE_TTL,
	})
	swipeService := services.NewSwipeService(store, getEnv.MATCH_DEDUPE)

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if getEnv.CRON_ENABLED {
		db, ok := store.GetDB().(*gorm.DB)
		if !ok {
			print("Warning: Failed to get database connection for cron jobs\n")
		} else {
			var importer cron.DatasetImporter
			if getEnv.IMPORT_SCHEDULE != "" {
				importService, loader, err := NewImportService(getEnv)
				if err != nil {
					log.Warnw("Dataset refresh disabled", "error", err)
				} else {
					importer = importService
					defer loader.Close()
				}
			}

			cronManager = cron.NewCronManager(db, importer, store, cron.Config{
				ImportSchedule:  getEnv.IMPORT_SCHEDULE,
				PrimarySource:   getEnv.IMPORT_PRIMARY_SOURCE,
				SecondarySource: getEnv.IMPORT_SECONDARY_SOURCE,
			})
			if err := cronManager.Start(); err != nil {
				print("Warning: Failed to start cron jobs\n")
				print("Error: ", err.Error(), "\n")
				// Don't fail the app, just log the warning
			}
		}
	}

	// Defer Closing DB and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Setup Routes
	router.SetupRoutes(app, store, router.Dependencies{
		Images:       imageService,
		Swipes:       swipeService,
		DefaultLimit: getEnv.DEFAULT_PAGE_LIMIT,
		Security: middleware.SecurityConfig{
			AllowedOrigins:    getEnv.Origins(),
			RateLimitRequests: getEnv.RATE_LIMIT_REQUESTS,
			RateLimitWindow:   time.Minute,
		},
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down API Server")
		if err := server.Shutdown(shutdownTimeout); err != nil {
			log.Errorw("Graceful shutdown failed", "error", err)
		}
	}()

	// Get the PORT & Start the Server
	return server.Run()

}

// NewImportService wires the CSV import to the lib/pq bulk loader and, when
// Spaces is configured, to s3:// sources. The caller closes the loader.
func NewImportService(getEnv *config.EnvironmentVariable) (*services.ImportService, *database.PostgreSQLStore, error) {
	objects, err := NewObjectOpener(getEnv)
	if err != nil {
		return nil, nil, err
	}

	loader, err := database.Start()
	if err != nil {
		return nil, nil, err
	}
	if err := loader.Init(); err != nil {
		loader.Close()
		return nil, nil, err
	}

	return services.NewImportService(loader, objects), loader, nil
}

// NewObjectOpener returns the Spaces client as an ObjectOpener, or nil when
// Spaces is not configured
func NewObjectOpener(getEnv *config.EnvironmentVariable) (services.ObjectOpener, error) {
	client, err := NewSpacesClient(getEnv)
	if err != nil || client == nil {
		return nil, err
	}
	return client, nil
}

// NewSpacesClient returns nil when neither an endpoint nor credentials are configured
func NewSpacesClient(getEnv *config.EnvironmentVariable) (*spaces.SpacesClient, error) {
	if getEnv.SPACES_ENDPOINT == "" && getEnv.SPACES_ACCESS_KEY == "" {
		return nil, nil
	}
	return spaces.NewSpacesClient(spaces.SpacesConfig{
		AccessKey: getEnv.SPACES_ACCESS_KEY,
		SecretKey: getEnv.SPACES_SECRET_KEY,
		Region:    getEnv.SPACES_REGION,
		Endpoint:  getEnv.SPACES_ENDPOINT,
	})
}
