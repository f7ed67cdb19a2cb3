package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cryptosage/pricefeed/internal/cache"
	"github.com/cryptosage/pricefeed/internal/model"
)

func (s *Server) getHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	health := HealthResponse{
		Status:     "healthy",
		Version:    s.deps.Version,
		Components: make(map[string]interface{}),
	}

	stats := s.deps.Prices.Stats()
	health.Components["hub"] = map[string]interface{}{
		"symbols":     stats.Symbols,
		"subscribers": stats.Subscribers,
		"published":   stats.Published,
	}
	if stats.Symbols == 0 {
		health.Status = "degraded"
	}

	names := make([]string, 0, len(s.deps.Checks))
	for name := range s.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.deps.Checks[name](ctx); err != nil {
			health.Status = "unhealthy"
			health.Components[name] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
			continue
		}
		health.Components[name] = "connected"
	}

	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, health)
}

func (s *Server) getPrices(c *gin.Context) {
	snap := s.deps.Prices.Snapshot()

	prices := make(map[string]float64, len(snap))
	for sym, price := range snap {
		prices[string(sym)] = price
	}

	c.JSON(http.StatusOK, PricesResponse{Prices: prices, Count: len(prices)})
}

func (s *Server) getPrice(c *gin.Context) {
	sym := model.NormalizeSymbol(c.Param("symbol"))

	if price, ok := s.deps.Prices.Price(sym); ok {
		c.JSON(http.StatusOK, PriceResponse{Symbol: string(sym), Price: price, Source: "hub"})
		return
	}

	if s.deps.Cache != nil {
		entry, err := s.deps.Cache.Latest(c.Request.Context(), sym)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, PriceResponse{
				Symbol:    string(sym),
				Price:     entry.Price,
				Source:    "cache",
				UpdatedAt: entry.UpdatedAt.UTC().Format(time.RFC3339),
			})
			return
		case !errors.Is(err, cache.ErrNotFound):
			s.logger.Warn("cache lookup failed", "symbol", sym, "error", err)
		}
	}

	c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown symbol " + string(sym)})
}

func (s *Server) getStream(c *gin.Context) {
	if s.deps.Service == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "price streaming disabled"})
		return
	}

	var symbols []model.Symbol
	for _, part := range strings.Split(c.Query("symbols"), ",") {
		if sym := model.NormalizeSymbol(part); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "symbols query parameter is required"})
		return
	}

	interval := s.cfg.DefaultInterval
	if raw := c.Query("interval"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid interval " + strconv.Quote(raw)})
			return
		}
		interval = d
	}

	ctx := c.Request.Context()
	updates := s.deps.Service.PricePublisher(ctx, symbols, interval)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case prices, ok := <-updates:
			if !ok {
				return false
			}
			out := make(map[string]float64, len(prices))
			for sym, price := range prices {
				out[string(sym)] = price
			}
			c.SSEvent("prices", out)
			return true
		}
	})
}

func (s *Server) getNews(c *gin.Context) {
	if s.deps.News == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "news disabled"})
		return
	}

	limit := s.queryLimit(c)

	articles, err := s.deps.News.Fetch(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("error fetching news", "error", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "news provider unavailable"})
		return
	}

	now := time.Now()
	res := NewsResponse{
		Articles: make([]ArticleResponse, 0, len(articles)),
		Limit:    limit,
	}
	for _, a := range articles {
		res.Articles = append(res.Articles, ArticleResponse{
			ID:           a.ID.String(),
			Title:        a.Title,
			Description:  a.Description,
			URL:          a.URL,
			ImageURL:     a.ImageURL,
			Source:       a.SourceName,
			PublishedAt:  a.PublishedAt.UTC().Format(time.RFC3339),
			RelativeTime: a.RelativeTime(now),
		})
	}
	res.Count = len(res.Articles)

	c.JSON(http.StatusOK, res)
}

func (s *Server) queryLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return s.cfg.DefaultNewsLimit
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		s.logger.Warn("invalid query parameter, using default", "param", "limit", "value", raw, "default", s.cfg.DefaultNewsLimit)
		return s.cfg.DefaultNewsLimit
	}
	if limit > s.cfg.MaxNewsLimit {
		s.logger.Warn("query parameter exceeds max, clamping", "param", "limit", "value", limit, "max", s.cfg.MaxNewsLimit)
		return s.cfg.MaxNewsLimit
	}
	return limit
}
