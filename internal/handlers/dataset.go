package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Arize-ai/phoenix-sub001/internal/nodeid"
	"github.com/Arize-ai/phoenix-sub001/internal/services"
)

type DatasetHandler struct {
	datasetService services.DatasetService
}

func NewDatasetHandler(datasetService services.DatasetService) *DatasetHandler {
	return &DatasetHandler{datasetService: datasetService}
}

func (dh *DatasetHandler) Create(c *gin.Context) {
	var req struct {
		Name        string                    `json:"name" binding:"required"`
		Description *string                   `json:"description"`
		Examples    []services.ExampleContent `json:"examples"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	dataset, version, err := dh.datasetService.CreateDataset(c.Request.Context(), req.Name, req.Description, req.Examples)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondCreated(c, gin.H{
		"dataset":    dataset,
		"dataset_id": nodeid.Encode("Dataset", dataset.ID),
		"version_id": nodeid.Encode("DatasetVersion", version.ID),
	})
}

func (dh *DatasetHandler) AddExamples(c *gin.Context) {
	datasetID, err := nodeid.Decode(c.Param("id"), "Dataset")
	if err != nil {
		RespondErr(c, err)
		return
	}
	var req struct {
		Examples []services.ExampleContent `json:"examples" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	version, err := dh.datasetService.AddExamples(c.Request.Context(), datasetID, req.Examples)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondCreated(c, gin.H{"version_id": nodeid.Encode("DatasetVersion", version.ID)})
}

func (dh *DatasetHandler) PatchExamples(c *gin.Context) {
	datasetID, err := nodeid.Decode(c.Param("id"), "Dataset")
	if err != nil {
		RespondErr(c, err)
		return
	}
	var req struct {
		Patches []services.ExamplePatch `json:"patches" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	version, err := dh.datasetService.PatchExamples(c.Request.Context(), datasetID, req.Patches)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"version_id": nodeid.Encode("DatasetVersion", version.ID)})
}

func (dh *DatasetHandler) DeleteExamples(c *gin.Context) {
	datasetID, err := nodeid.Decode(c.Param("id"), "Dataset")
	if err != nil {
		RespondErr(c, err)
		return
	}
	var req struct {
		ExampleIDs []int64 `json:"example_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	version, err := dh.datasetService.DeleteExamples(c.Request.Context(), datasetID, req.ExampleIDs)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"version_id": nodeid.Encode("DatasetVersion", version.ID)})
}

func (dh *DatasetHandler) GetExamples(c *gin.Context) {
	datasetID, err := nodeid.Decode(c.Param("id"), "Dataset")
	if err != nil {
		RespondErr(c, err)
		return
	}
	var versionID *int64
	if raw := c.Query("version_id"); raw != "" {
		id, err := nodeid.Decode(raw, "DatasetVersion")
		if err != nil {
			RespondErr(c, err)
			return
		}
		versionID = &id
	}
	revisions, err := dh.datasetService.GetExamples(c.Request.Context(), datasetID, versionID)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"data": revisions})
}
