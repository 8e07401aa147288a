package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/sape-server/internal/application"
	"github.com/oksasatya/sape-server/pkg/helpers"
	"github.com/oksasatya/sape-server/pkg/response"
)

type UserHandler struct {
	Requests *application.RequestService
	Logger   *logrus.Logger
}

func NewUserHandler(requests *application.RequestService, logger *logrus.Logger) *UserHandler {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &UserHandler{Requests: requests, Logger: logger}
}

type userView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

type meView struct {
	Outcome string    `json:"outcome"`
	Name    string    `json:"name,omitempty"`
	User    *userView `json:"user"`
}

// Me GET /api/me reports how the caller was resolved.
func (h *UserHandler) Me(c *gin.Context) {
	id, err := h.Requests.CurrentUser(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("resolve current user failed")
		response.Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	out := meView{Outcome: id.Outcome.String(), Name: id.Name}
	if u := id.User; u != nil {
		out.User = &userView{ID: u.ID, Username: u.Username, Email: u.Email, Name: u.Name, Roles: u.Roles, CreatedAt: u.CreatedAt}
	}
	response.Success(c, http.StatusOK, out, "profile", nil)
}
