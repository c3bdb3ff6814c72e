package api

import (
	"github.com/castlemilk/shorted.com.au-sub001/internal/api/handler"
	"github.com/castlemilk/shorted.com.au-sub001/internal/api/middleware"
	"github.com/castlemilk/shorted.com.au-sub001/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter configures the gin engine with middleware and all routes.
// Parameters:
//   - db: database handle, used by the health check.
//   - runs: run repository backing the run endpoints.
//   - symbols: symbol repository backing the catalog endpoints.
//   - prices: price repository backing the series endpoints.
//   - mode: gin mode, one of release, test or debug.
//   - cors: cross-origin policy.
// Returns:
//   - *gin.Engine: ready router.
func SetupRouter(
	db *gorm.DB,
	runs *repository.RunRepository,
	symbols *repository.SymbolRepository,
	prices *repository.PriceRepository,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler(db)
	runHandler := handler.NewRunHandler(runs)
	symbolHandler := handler.NewSymbolHandler(symbols, prices)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/runs", runHandler.ListRuns)
		v1.GET("/runs/latest", runHandler.LatestRun)
		v1.GET("/runs/:id", runHandler.GetRun)

		v1.GET("/symbols", symbolHandler.ListSymbols)
		v1.GET("/symbols/:code/prices", symbolHandler.GetPrices)
	}

	return r
}
