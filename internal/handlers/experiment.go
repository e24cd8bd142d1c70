package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Arize-ai/phoenix-sub001/internal/nodeid"
	"github.com/Arize-ai/phoenix-sub001/internal/services"
)

type ExperimentHandler struct {
	experimentService services.ExperimentService
}

func NewExperimentHandler(experimentService services.ExperimentService) *ExperimentHandler {
	return &ExperimentHandler{experimentService: experimentService}
}

func (eh *ExperimentHandler) Create(c *gin.Context) {
	var req struct {
		DatasetID   string  `json:"dataset_id" binding:"required"`
		VersionID   *string `json:"version_id"`
		Name        string  `json:"name" binding:"required"`
		Description *string `json:"description"`
		Repetitions int     `json:"repetitions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	datasetID, err := nodeid.Decode(req.DatasetID, "Dataset")
	if err != nil {
		RespondErr(c, err)
		return
	}
	var versionID *int64
	if req.VersionID != nil {
		id, err := nodeid.Decode(*req.VersionID, "DatasetVersion")
		if err != nil {
			RespondErr(c, err)
			return
		}
		versionID = &id
	}
	repetitions := req.Repetitions
	if repetitions == 0 {
		repetitions = 1
	}
	experiment, err := eh.experimentService.CreateExperiment(
		c.Request.Context(), datasetID, versionID, req.Name, req.Description, repetitions)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondCreated(c, gin.H{
		"experiment":    experiment,
		"experiment_id": nodeid.Encode("Experiment", experiment.ID),
	})
}

func (eh *ExperimentHandler) RecordRuns(c *gin.Context) {
	experimentID, err := nodeid.Decode(c.Param("id"), "Experiment")
	if err != nil {
		RespondErr(c, err)
		return
	}
	var req struct {
		Runs []services.RunInput `json:"runs" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	runs, err := eh.experimentService.RecordRuns(c.Request.Context(), experimentID, req.Runs)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondCreated(c, gin.H{"data": runs})
}

func (eh *ExperimentHandler) GetRevisions(c *gin.Context) {
	experimentID, err := nodeid.Decode(c.Param("id"), "Experiment")
	if err != nil {
		RespondErr(c, err)
		return
	}
	revisions, err := eh.experimentService.GetRevisions(c.Request.Context(), experimentID)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"data": revisions})
}
