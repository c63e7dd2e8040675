package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kagemura/scanlate/models"
	"github.com/kagemura/scanlate/source"
)

// Sources returns a handler for GET /api/v1/sources.
func Sources(reg *source.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		infos := make([]models.SourceInfo, 0, reg.Len())
		for _, src := range reg.All() {
			_, images := src.Images()
			infos = append(infos, models.SourceInfo{
				Key:            src.Key,
				Name:           src.Name,
				BaseURL:        src.BaseURL,
				SupportsImages: images,
			})
		}
		c.JSON(http.StatusOK, models.SourcesResponse{Sources: infos})
	}
}
