package handlers

import (
	"net/http"

	"github.com/geocoder89/jumpin/internal/domain/profile"
	"github.com/gin-gonic/gin"
)

type SchoolsHandler struct {
	catalogue *profile.Catalogue
}

func NewSchoolsHandler(c *profile.Catalogue) *SchoolsHandler {
	return &SchoolsHandler{catalogue: c}
}

// List returns the selectable schools, the "other" option last.
func (h *SchoolsHandler) List(ctx *gin.Context) {
	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items":       h.catalogue.Options(),
		"otherOption": profile.SchoolOther,
	})
}
