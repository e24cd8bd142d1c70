package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Arize-ai/phoenix-sub001/internal/nodeid"
	"github.com/Arize-ai/phoenix-sub001/internal/services"
)

type IngestHandler struct {
	ingestService services.IngestService
}

func NewIngestHandler(ingestService services.IngestService) *IngestHandler {
	return &IngestHandler{ingestService: ingestService}
}

func (ih *IngestHandler) IngestSpans(c *gin.Context) {
	var req struct {
		TraceID string               `json:"trace_id" binding:"required"`
		Spans   []services.SpanInput `json:"spans" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	spans, err := ih.ingestService.IngestSpans(c.Request.Context(), c.Param("project"), req.TraceID, req.Spans)
	if err != nil {
		RespondErr(c, err)
		return
	}
	ids := make([]string, 0, len(spans))
	for _, s := range spans {
		ids = append(ids, nodeid.Encode("Span", s.ID))
	}
	RespondCreated(c, gin.H{"span_ids": ids})
}
