package search

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bookhub/internal/crawler"
	"bookhub/pkg/models"
)

type Handler struct {
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/search", h.search)
	rg.GET("/search/stream", h.stream)
	rg.GET("/search/check", h.check)
	rg.GET("/search/history", h.history)
	rg.GET("/search/:id", h.get)
	rg.GET("/platforms", h.platforms)
}

// RegisterProtectedRoutes holds the destructive operations.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/search/:id", h.delete)
}

type searchReq struct {
	Query        string   `json:"query"`
	Platforms    []string `json:"platforms"`
	ForceRefresh bool     `json:"force_refresh"`
}

// search drains the whole event stream and answers with one aggregate
// document, for clients that don't want incremental results.
func (h *Handler) search(c *gin.Context) {
	var req searchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	events, err := h.Service.Run(c.Request.Context(), Request{
		Query:        req.Query,
		Platforms:    req.Platforms,
		ForceRefresh: req.ForceRefresh,
	})
	if err != nil {
		c.JSON(requestErrStatus(err), gin.H{"error": err.Error()})
		return
	}

	var (
		ratings = make([]models.PlatformRating, 0)
		summary *models.SearchSummary
		source  = crawler.SourceCrawl
	)
	for ev := range events {
		switch ev.Type {
		case crawler.EventPlatformResult:
			if ev.Rating != nil {
				ratings = append(ratings, *ev.Rating)
			}
		case crawler.EventDone:
			summary = ev.Summary
			if ev.Source != "" {
				source = ev.Source
			}
		}
	}
	if summary == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "crawl produced no summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"source":  source,
		"search":  summary,
		"ratings": ratings,
	})
}

// stream sends the event sequence over SSE as results arrive. Event
// names mirror the Event.Type values, so a cache replay and a live
// crawl look identical to the client.
func (h *Handler) stream(c *gin.Context) {
	var platforms []string
	if raw := c.Query("platforms"); raw != "" {
		platforms = strings.Split(raw, ",")
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force_refresh", "false"))

	events, err := h.Service.Run(c.Request.Context(), Request{
		Query:        c.Query("query"),
		Platforms:    platforms,
		ForceRefresh: force,
	})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if err != nil {
		c.SSEvent(string(crawler.EventError), crawler.Event{
			Type:  crawler.EventError,
			Error: err.Error(),
		})
		return
	}

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(ev.Type), ev)
		return true
	})
}

// check answers "is this query cached?" without crawling anything.
func (h *Handler) check(c *gin.Context) {
	query := c.Query("query")
	if strings.TrimSpace(query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query required"})
		return
	}

	summary, err := h.Service.Check(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "check failed"})
		return
	}
	if summary == nil {
		c.JSON(http.StatusOK, gin.H{"cached": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cached": true, "search": summary})
}

func (h *Handler) history(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	summaries, err := h.Service.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history failed"})
		return
	}
	if summaries == nil {
		summaries = []models.SearchSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"searches": summaries})
}

func (h *Handler) get(c *gin.Context) {
	summary, ratings, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "search not found"})
		return
	}
	if ratings == nil {
		ratings = []models.PlatformRating{}
	}
	c.JSON(http.StatusOK, gin.H{
		"source":  crawler.SourceCache,
		"search":  summary,
		"ratings": ratings,
	})
}

func (h *Handler) delete(c *gin.Context) {
	deleted, err := h.Service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "search not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) platforms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"platforms": h.Service.Platforms()})
}

func requestErrStatus(err error) int {
	switch {
	case errors.Is(err, crawler.ErrEmptyQuery),
		errors.Is(err, crawler.ErrEmptySelection),
		errors.Is(err, crawler.ErrUnknownPlatform):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
