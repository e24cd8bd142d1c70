package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Arize-ai/phoenix-sub001/internal/modelcache"
)

// ModelHandler serves the generative model catalog from the in-memory
// cache; reads never hit the database.
type ModelHandler struct {
	cache *modelcache.Cache
}

func NewModelHandler(cache *modelcache.Cache) *ModelHandler {
	return &ModelHandler{cache: cache}
}

func (mh *ModelHandler) List(c *gin.Context) {
	RespondOK(c, gin.H{
		"data":      mh.cache.List(),
		"watermark": mh.cache.Watermark(),
	})
}
