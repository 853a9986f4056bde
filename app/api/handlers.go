package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avoronov/xscout/app/database"
)

const defaultRunsLimit = 50

func NewHandler(runRepo database.RunRepository, postRepo database.PostRepository) *Handler {
	return &Handler{
		runRepo:  runRepo,
		postRepo: postRepo,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if runCount, err := h.runRepo.GetRunCount(); err == nil {
		health["runs"] = runCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	runs, err := h.runRepo.GetRuns(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	list := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		list = append(list, runInfo(run))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"runs":  list,
		"total": len(list),
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	run := h.findRun(c)
	if run == nil {
		return
	}

	details := runInfo(*run)

	if count, err := h.postRepo.GetPostCount(run.ID); err == nil {
		details["archived_posts"] = count
	}

	if brief, err := h.runRepo.GetBrief(run.ID); err == nil && brief != nil {
		details["brief"] = map[string]interface{}{
			"model":      brief.Model,
			"created_at": brief.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) GetBrief(c *gin.Context) {
	run := h.findRun(c)
	if run == nil {
		return
	}

	brief, err := h.runRepo.GetBrief(run.ID)
	if err != nil {
		slog.Error("Database error", "operation", "get_brief", "run", run.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if brief == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No brief saved for this run"})
		return
	}

	c.Header("Content-Type", "text/markdown; charset=utf-8")
	c.Header("X-Run-ID", run.ID)
	c.Header("X-Model", brief.Model)

	c.String(http.StatusOK, brief.Content)
}

func (h *Handler) GetPosts(c *gin.Context) {
	run := h.findRun(c)
	if run == nil {
		return
	}

	posts, err := h.postRepo.GetPosts(run.ID)
	if err != nil {
		slog.Error("Database error", "operation", "get_posts", "run", run.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	list := make([]map[string]interface{}, 0, len(posts))
	for _, post := range posts {
		list = append(list, map[string]interface{}{
			"source":    post.Source,
			"author":    post.Author,
			"text":      post.Text,
			"url":       post.URL,
			"timestamp": post.PostedAt,
			"score":     post.Score,
			"metadata":  post.Metadata,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"run_id": run.ID,
		"posts":  list,
		"total":  len(list),
	})
}

// findRun resolves the :id parameter, writing the error response itself
// when the run cannot be served.
func (h *Handler) findRun(c *gin.Context) *database.Run {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing run ID parameter"})
		return nil
	}

	run, err := h.runRepo.GetRun(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_run", "run", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil
	}

	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return nil
	}

	return run
}

func runInfo(run database.Run) map[string]interface{} {
	return map[string]interface{}{
		"id":             run.ID,
		"topic":          run.Topic,
		"profile":        run.Profile,
		"lookback_hours": run.LookbackHours,
		"post_count":     run.PostCount,
		"source_counts":  run.SourceCounts,
		"pulled_at":      run.PulledAt,
		"created_at":     run.CreatedAt,
	}
}
