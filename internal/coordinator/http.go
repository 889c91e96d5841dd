package coordinator

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/surveillance-engine/internal/api"
	"github.com/rawblock/surveillance-engine/internal/config"
)

// HandleOrchestrate serves POST /orchestrate. The body names an input file
// inside the configured input directory; the response is the run summary.
func (co *Coordinator) HandleOrchestrate(c *gin.Context) {
	var req struct {
		InputFile string `json:"input_file" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "input_file is required", "details": err.Error()})
		return
	}

	result, err := co.Run(c.Request.Context(), req.InputFile)
	if err != nil {
		// Malformed input (bad file name, escaping path, unparseable CSV) is
		// a semantic rejection, not a missing resource.
		switch {
		case errors.Is(err, config.ErrInputNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleListAlgorithms serves GET /algorithms.
func (co *Coordinator) HandleListAlgorithms(c *gin.Context) {
	type entry struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	names := co.registry.List()
	out := make([]entry, 0, len(names))
	for _, name := range names {
		det, err := co.registry.Get(name)
		if err != nil {
			continue
		}
		out = append(out, entry{Name: det.Name(), Description: det.Description()})
	}
	c.JSON(http.StatusOK, gin.H{"algorithms": out})
}

// Router assembles the coordinator's HTTP surface, including the websocket
// stream of run alerts.
func (co *Coordinator) Router(cfg *config.Config) *gin.Engine {
	hub := api.NewHub()
	go hub.Run()
	co.OnComplete(api.BroadcastRunAlert(hub))

	r := gin.Default()
	r.Use(api.CORS(cfg.AllowedOrigins))

	r.GET("/", api.RootHandler("coordinator"))
	r.GET("/health", api.HealthHandler("coordinator", func() gin.H {
		return gin.H{
			"algorithms": co.registry.List(),
			"workers":    len(cfg.WorkerURLs),
		}
	}))
	r.GET("/metrics", api.MetricsHandler())
	r.GET("/algorithms", co.HandleListAlgorithms)
	r.GET("/stream", hub.Subscribe)

	limiter := api.NewRateLimiter(120, 20)
	orch := r.Group("/")
	orch.Use(limiter.Middleware(), api.APIKeyAuth(cfg.APIKey), api.BodySizeLimit(cfg.MaxBodyBytes))
	orch.POST("/orchestrate", co.HandleOrchestrate)

	return r
}
