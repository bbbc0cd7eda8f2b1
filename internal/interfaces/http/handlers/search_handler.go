package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/whoiskiwi/PatentSearch/internal/application/search"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	"github.com/whoiskiwi/PatentSearch/internal/interfaces/http/middleware"
)

// UserResolver returns the authenticated user for c, if any. Anonymous
// searches are not recorded.
type UserResolver func(c *gin.Context) (userID string, ok bool)

// HeaderUser trusts the named request header, normally set by an
// authenticating proxy in front of the API.
func HeaderUser(name string) UserResolver {
	return func(c *gin.Context) (string, bool) {
		id := strings.TrimSpace(c.GetHeader(name))
		return id, id != ""
	}
}

// SearchOption configures a SearchHandler.
type SearchOption func(*SearchHandler)

// WithHistory records every successful search of an identified user.
func WithHistory(rec search.HistoryRecorder, users UserResolver) SearchOption {
	return func(h *SearchHandler) {
		h.history = rec
		h.users = users
	}
}

// WithSearchLogger sets the handler logger.
func WithSearchLogger(l logging.Logger) SearchOption {
	return func(h *SearchHandler) { h.logger = logging.OrNop(l) }
}

// SearchHandler serves the four scenario endpoints.
type SearchHandler struct {
	handle  *search.Handle
	history search.HistoryRecorder
	users   UserResolver
	logger  logging.Logger
}

// NewSearchHandler serves searches against the engine held by handle.
func NewSearchHandler(handle *search.Handle, opts ...SearchOption) *SearchHandler {
	h := &SearchHandler{handle: handle, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the scenario endpoints under rg, normally /api/search.
func (h *SearchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/invalidity", h.Invalidity)
	rg.POST("/infringement", h.Infringement)
	rg.POST("/patentability", h.Patentability)
	rg.POST("/by-patent-id", h.ByPatentID)
}

// Invalidity handles POST /invalidity.
func (h *SearchHandler) Invalidity(c *gin.Context) {
	var req search.InvalidityRequest
	if !bindJSON(c, &req) {
		return
	}
	runScenario(h, c, search.ScenarioInvalidity, req, func(ctx context.Context, e *search.Engine) ([]search.InvalidityResult, error) {
		return e.Invalidity(ctx, req)
	})
}

// Infringement handles POST /infringement.
func (h *SearchHandler) Infringement(c *gin.Context) {
	var req search.InfringementRequest
	if !bindJSON(c, &req) {
		return
	}
	runScenario(h, c, search.ScenarioInfringement, req, func(ctx context.Context, e *search.Engine) ([]search.InfringementResult, error) {
		return e.Infringement(ctx, req)
	})
}

// Patentability handles POST /patentability.
func (h *SearchHandler) Patentability(c *gin.Context) {
	var req search.PatentabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	runScenario(h, c, search.ScenarioPatentability, req, func(ctx context.Context, e *search.Engine) ([]search.PatentabilityResult, error) {
		return e.Patentability(ctx, req)
	})
}

// ByPatentID answers 200 with success=false when the source patent is not in
// the corpus.
func (h *SearchHandler) ByPatentID(c *gin.Context) {
	var req search.PatentIDRequest
	if !bindJSON(c, &req) {
		return
	}
	start := time.Now()
	e, err := h.handle.Engine(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	src, results, err := e.PatentID(c.Request.Context(), req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	resp := search.NewResponse(search.ScenarioPatentID, results, time.Since(start))
	if src == nil {
		resp.Success = false
		c.JSON(http.StatusOK, resp)
		return
	}
	resp.SourcePatent = search.NewSourcePatent(src)
	recordHistory(h, c, req, resp)
	c.JSON(http.StatusOK, resp)
}

func runScenario[T any](h *SearchHandler, c *gin.Context, scenario search.Scenario, query any,
	run func(context.Context, *search.Engine) ([]T, error)) {
	start := time.Now()
	e, err := h.handle.Engine(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	results, err := run(c.Request.Context(), e)
	if err != nil {
		writeAppError(c, err)
		return
	}
	resp := search.NewResponse(scenario, results, time.Since(start))
	recordHistory(h, c, query, resp)
	c.JSON(http.StatusOK, resp)
}

// recordHistory never fails the search; a failed save is only logged.
func recordHistory[T any](h *SearchHandler, c *gin.Context, query any, resp search.Response[T]) {
	if h.history == nil || h.users == nil {
		return
	}
	userID, ok := h.users(c)
	if !ok {
		return
	}
	id, err := h.history.Save(c.Request.Context(), userID, search.NewHistoryEntry(query, resp))
	if err != nil {
		h.logger.Warn("failed to save search history",
			logging.Scenario(string(resp.Scenario)),
			logging.String("user_id", userID),
			logging.Err(err))
		return
	}
	c.Header(middleware.HistoryIDHeader, id)
}
