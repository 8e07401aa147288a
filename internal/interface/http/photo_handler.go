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

const maxPhotoBytes = 5 << 20

type PhotoHandler struct {
	Svc    *application.PhotoService
	Logger *logrus.Logger
	Status ErrorStatusPolicy
}

func NewPhotoHandler(svc *application.PhotoService, logger *logrus.Logger, status ErrorStatusPolicy) *PhotoHandler {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &PhotoHandler{Svc: svc, Logger: logger, Status: status}
}

// Upload PUT /api/persons/:id/photo with a multipart "file" field.
func (h *PhotoHandler) Upload(c *gin.Context) {
	if !h.Svc.Enabled() {
		response.Error(c, http.StatusServiceUnavailable, application.ErrPhotoStorageDisabled.Error(), nil)
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		response.Error(c, h.Status.MissingInput, MissingInputMessage, err.Error())
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, h.Status.MissingInput, MissingInputMessage, "file: "+err.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, h.Status.MissingInput, MissingInputMessage, "file: "+err.Error())
		return
	}
	defer func() { _ = f.Close() }()

	out, err := h.Svc.Upload(c.Request.Context(), id, f, fh.Header.Get("Content-Type"))
	if err != nil {
		if ve, ok := crud.AsValidation(err); ok {
			response.Error(c, h.Status.Validation, ve.Message, ve)
			return
		}
		if errors.Is(err, application.ErrPhotoStorageDisabled) {
			response.Error(c, http.StatusServiceUnavailable, err.Error(), nil)
			return
		}
		h.Logger.WithError(err).WithField("person_id", id).Error("photo upload failed")
		response.Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	response.Success(c, http.StatusOK, out, "photo updated", nil)
}
