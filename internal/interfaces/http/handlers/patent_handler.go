package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/whoiskiwi/PatentSearch/internal/application/search"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// PatentHandler serves single-patent lookup and corpus statistics.
type PatentHandler struct {
	handle *search.Handle
}

// NewPatentHandler reads from the engine held by handle.
func NewPatentHandler(handle *search.Handle) *PatentHandler {
	return &PatentHandler{handle: handle}
}

// RegisterRoutes mounts the handler under rg, normally /api.
func (h *PatentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/patent/:doc_number", h.GetPatent)
	rg.GET("/stats", h.Stats)
}

// GetPatent returns the record with at most ten claims. Doc numbers match
// with or without the country prefix.
func (h *PatentHandler) GetPatent(c *gin.Context) {
	e, err := h.handle.Engine(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	doc := c.Param("doc_number")
	r, ok := e.GetPatent(doc)
	if !ok {
		writeAppError(c, apperrors.Newf(apperrors.CodePatentNotFound, "Patent '%s' not found", doc))
		return
	}
	c.JSON(http.StatusOK, search.NewSourcePatent(r))
}

// Stats returns corpus size, date range and the top classifications.
func (h *PatentHandler) Stats(c *gin.Context) {
	e, err := h.handle.Engine(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, e.Stats())
}
