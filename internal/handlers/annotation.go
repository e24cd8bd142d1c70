package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/Arize-ai/phoenix-sub001/internal/annotations"
	"github.com/Arize-ai/phoenix-sub001/internal/nodeid"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

type AnnotationHandler struct {
	resolver *annotations.Resolver
	kind     annotations.Kind
}

func NewAnnotationHandler(resolver *annotations.Resolver, kind annotations.Kind) *AnnotationHandler {
	return &AnnotationHandler{resolver: resolver, kind: kind}
}

type annotationCreateItem struct {
	ParentID         string                 `json:"parent_id" binding:"required"`
	Name             string                 `json:"name" binding:"required"`
	Label            *string                `json:"label"`
	Score            *float64               `json:"score"`
	Explanation      *string                `json:"explanation"`
	Metadata         json.RawMessage        `json:"metadata"`
	AnnotatorKind    types.AnnotatorKind    `json:"annotator_kind" binding:"required"`
	Identifier       string                 `json:"identifier"`
	Source           types.AnnotationSource `json:"source" binding:"required"`
	UserID           *int64                 `json:"-"`
	DocumentPosition *int                   `json:"document_position"`
}

type annotationPatchItem struct {
	ID          string                     `json:"id" binding:"required"`
	Name        types.Opt[string]          `json:"name"`
	Label       types.Opt[string]          `json:"label"`
	Score       types.Opt[float64]         `json:"score"`
	Explanation types.Opt[string]          `json:"explanation"`
	Metadata    types.Opt[json.RawMessage] `json:"metadata"`
}

type annotationResponse struct {
	ID string `json:"id"`
	annotations.Annotation
	ParentID string `json:"parent_id"`
}

func (ah *AnnotationHandler) respond(rows []annotations.Annotation) []annotationResponse {
	out := make([]annotationResponse, len(rows))
	for i, row := range rows {
		out[i] = annotationResponse{
			ID:         nodeid.Encode(ah.kind.Name, row.ID),
			Annotation: row,
			ParentID:   nodeid.Encode(ah.kind.ParentName, row.ParentID),
		}
	}
	return out
}

func (ah *AnnotationHandler) Create(c *gin.Context) {
	var req struct {
		Data []annotationCreateItem `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	inputs := make([]annotations.UpsertInput, len(req.Data))
	for i, item := range req.Data {
		parentID, err := nodeid.Decode(item.ParentID, ah.kind.ParentName)
		if err != nil {
			RespondErr(c, err)
			return
		}
		var userID *int64
		if u := currentUserID(c); u != nil {
			userID = u
		}
		inputs[i] = annotations.UpsertInput{
			ParentID:         parentID,
			Name:             item.Name,
			Label:            item.Label,
			Score:            item.Score,
			Explanation:      item.Explanation,
			Metadata:         item.Metadata,
			AnnotatorKind:    item.AnnotatorKind,
			Identifier:       item.Identifier,
			Source:           item.Source,
			UserID:           userID,
			DocumentPosition: item.DocumentPosition,
		}
	}
	rows, err := ah.resolver.Create(c.Request.Context(), ah.kind, inputs)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"data": ah.respond(rows)})
}

func (ah *AnnotationHandler) Patch(c *gin.Context) {
	var req struct {
		Data []annotationPatchItem `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	patches := make([]annotations.PatchInput, len(req.Data))
	for i, item := range req.Data {
		id, err := nodeid.Decode(item.ID, ah.kind.Name)
		if err != nil {
			RespondErr(c, err)
			return
		}
		patches[i] = annotations.PatchInput{
			ID:          id,
			Name:        item.Name,
			Label:       item.Label,
			Score:       item.Score,
			Explanation: item.Explanation,
			Metadata:    item.Metadata,
		}
	}
	rows, err := ah.resolver.Patch(c.Request.Context(), ah.kind, patches)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"data": ah.respond(rows)})
}

func (ah *AnnotationHandler) Delete(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	ids := make([]int64, len(req.IDs))
	for i, raw := range req.IDs {
		id, err := nodeid.Decode(raw, ah.kind.Name)
		if err != nil {
			RespondErr(c, err)
			return
		}
		ids[i] = id
	}
	rows, err := ah.resolver.Delete(c.Request.Context(), ah.kind, ids)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"data": ah.respond(rows)})
}
