// Package api serves the aggregate reports over HTTP. Every route is a
// read; ingestion never runs behind it.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"harvest/internal/aggregate"
	"harvest/internal/store"
)

type Handler struct {
	Store  *store.Store
	Agg    *aggregate.Aggregator
	DBPath string
}

func NewHandler(st *store.Store, dbPath string) *Handler {
	return &Handler{Store: st, Agg: aggregate.New(st), DBPath: dbPath}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
	r.GET("/counts", h.counts)

	reports := r.Group("/reports")
	reports.GET("/languages-per-country", h.languagesPerCountry) // ?limit=
	reports.GET("/countries-per-region", h.countriesPerRegion)
	reports.GET("/books-per-year", h.booksPerYear)
	reports.GET("/genre-ratings", h.genreRatings)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": h.DBPath})
}

func (h *Handler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not_ready",
			"db_error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "db": "ok"})
}

func (h *Handler) counts(c *gin.Context) {
	counts, err := h.Agg.Counts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *Handler) languagesPerCountry(c *gin.Context) {
	limit := parseInt(c.Query("limit"), 0)
	if limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must not be negative"})
		return
	}

	rows, err := h.Agg.LanguagesPerCountry(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": orEmpty(rows)})
}

func (h *Handler) countriesPerRegion(c *gin.Context) {
	rows, err := h.Agg.CountriesPerRegion(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": orEmpty(rows)})
}

func (h *Handler) booksPerYear(c *gin.Context) {
	rows, err := h.Agg.BooksPerYear(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": orEmpty(rows)})
}

func (h *Handler) genreRatings(c *gin.Context) {
	rows, err := h.Agg.AverageRatingPerGenre(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": orEmpty(rows)})
}

// orEmpty keeps empty results rendering as [] instead of null.
func orEmpty[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
