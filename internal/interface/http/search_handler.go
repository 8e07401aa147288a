package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/sape-server/internal/application"
	"github.com/oksasatya/sape-server/internal/application/crud"
	"github.com/oksasatya/sape-server/pkg/helpers"
	"github.com/oksasatya/sape-server/pkg/response"
)

type SearchHandler struct {
	Svc    *application.SearchService
	Logger *logrus.Logger
	Status ErrorStatusPolicy
}

func NewSearchHandler(svc *application.SearchService, logger *logrus.Logger, status ErrorStatusPolicy) *SearchHandler {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &SearchHandler{Svc: svc, Logger: logger, Status: status}
}

// Search GET /api/search?q=&size=
func (h *SearchHandler) Search(c *gin.Context) {
	var size int
	v, err := optionalInt(c, "size")
	if err != nil {
		response.Error(c, h.Status.MissingInput, MissingInputMessage, err.Error())
		return
	}
	if v != nil {
		size = *v
	}
	hits, err := h.Svc.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		if errors.Is(err, crud.ErrMissingInput) {
			response.Error(c, h.Status.MissingInput, MissingInputMessage, err.Error())
			return
		}
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("search failed")
		response.Error(c, http.StatusBadGateway, "search unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "", gin.H{"count": len(hits)})
}
