package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts every endpoint served by h.
func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "variant": h.pipeline.Variant()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		// Pipeline
		v1.POST("/analyze", h.Analyze)
		v1.POST("/preprocess", h.Preprocess)
		v1.POST("/fpcheck", h.FalsePositiveCheck)

		// Stored predictions
		v1.GET("/predictions", h.GetPredictions)
		v1.GET("/attacks", h.GetAttacks)
		v1.GET("/search/attacks", h.SearchAttacks)
		v1.GET("/stats", h.GetStats)
	}
}
