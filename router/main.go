package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/university-explorer/database"
	"github.com/sahilchouksey/university-explorer/handlers"
	swipe_handlers "github.com/sahilchouksey/university-explorer/handlers/swipe"
	university_handlers "github.com/sahilchouksey/university-explorer/handlers/university"
	"github.com/sahilchouksey/university-explorer/utils"
	"github.com/sahilchouksey/university-explorer/utils/metrics"
	"github.com/sahilchouksey/university-explorer/utils/middleware"
)

// Dependencies are the services the route handlers are built from
type Dependencies struct {
	Images       university_handlers.ImageResolver
	Swipes       swipe_handlers.Recorder
	DefaultLimit int
	Security     middleware.SecurityConfig
}

func SetupRoutes(app *fiber.App, store database.Storage, deps Dependencies) {
	universityHandler := university_handlers.NewUniversityHandler(store, deps.Images, deps.DefaultLimit)
	swipeHandler := swipe_handlers.NewSwipeHandler(deps.Swipes, deps.DefaultLimit)

	middleware.SetupSecurity(app, deps.Security)

	app.Get("/", handlers.HandleWelcome)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api/v1")

	// Static segments are registered before /:id so they are not read as ids
	universities := api.Group("/universities")
	universities.Get("/", universityHandler.ListUniversities)               // List with filters, pagination and sort
	universities.Get("/search/:name", universityHandler.SearchUniversities) // Case-insensitive name substring
	universities.Get("/state/:state", universityHandler.ListByState)        // Comma separated state codes
	universities.Get("/name/:name", universityHandler.GetUniversityByName)  // Exact name lookup
	universities.Get("/:id", universityHandler.GetUniversity)               // Single institution with companions
	universities.Get("/:id/degrees", universityHandler.GetDegrees)          // Degree offering record
	universities.Get("/:id/identity", universityHandler.GetIdentity)        // Identity record
	universities.Get("/:id/image", universityHandler.GetUniversityImage)    // Campus image by institution name

	api.Get("/images", universityHandler.ResolveImage)
	api.Get("/states", universityHandler.ListStates)
	api.Get("/countries", universityHandler.ListCountries)
	api.Get("/stats", universityHandler.GetStats)
	api.Get("/imports", universityHandler.ListImportRuns)

	swipes := api.Group("/swipes")
	swipes.Post("/", swipeHandler.RecordSwipe)
	swipes.Get("/", swipeHandler.ListSwipes)

	matches := api.Group("/matches")
	matches.Get("/", swipeHandler.ListMatches)
	matches.Delete("/:id", swipeHandler.DeleteMatch)
}
