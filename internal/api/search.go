package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultStatsAge = 24 * time.Hour
)

func (h *Handler) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Elasticsearch not available"})
		return false
	}
	return true
}

// pagination reads from and size, capping size to prevent abuse.
func pagination(c *gin.Context) (from, size int, ok bool) {
	from, size = 0, defaultPageSize

	if s := c.Query("from"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' parameter"})
			return 0, 0, false
		}
		from = v
	}

	if s := c.Query("size"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'size' parameter"})
			return 0, 0, false
		}
		size = v
	}

	if size > maxPageSize {
		size = maxPageSize
	}
	return from, size, true
}

// GetPredictions lists stored predictions, newest first.
func (h *Handler) GetPredictions(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	from, size, ok := pagination(c)
	if !ok {
		return
	}

	docs, err := h.store.GetPredictions(c.Request.Context(), from, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to retrieve predictions: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": docs,
		"total":       len(docs),
		"from":        from,
		"size":        size,
	})
}

// GetAttacks lists stored predictions flagged as attacks.
func (h *Handler) GetAttacks(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	from, size, ok := pagination(c)
	if !ok {
		return
	}

	docs, err := h.store.GetAttacks(c.Request.Context(), from, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to retrieve attacks: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attacks": docs,
		"total":   len(docs),
		"from":    from,
		"size":    size,
	})
}

// SearchAttacks full-text searches the inputs of stored attacks.
func (h *Handler) SearchAttacks(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'q' parameter is required"})
		return
	}
	from, size, ok := pagination(c)
	if !ok {
		return
	}

	docs, err := h.store.SearchAttacksByText(c.Request.Context(), q, from, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to search attacks: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attacks": docs,
		"total":   len(docs),
		"from":    from,
		"size":    size,
		"query":   q,
	})
}

// GetStats aggregates stored predictions. The range defaults to the last
// 24 hours.
func (h *Handler) GetStats(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	end := time.Now().UTC()
	start := end.Add(-defaultStatsAge)

	if s := c.Query("start_time"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'start_time' format, use RFC3339"})
			return
		}
		start = t
	}
	if s := c.Query("end_time"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'end_time' format, use RFC3339"})
			return
		}
		end = t
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'end_time' is before 'start_time'"})
		return
	}

	stats, err := h.store.GetStats(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get stats: %v", err)})
		return
	}
	c.JSON(http.StatusOK, stats)
}
