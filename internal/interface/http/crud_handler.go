package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/sape-server/internal/application/crud"
	"github.com/oksasatya/sape-server/internal/application/dto"
	"github.com/oksasatya/sape-server/internal/domain/query"
	"github.com/oksasatya/sape-server/pkg/helpers"
	"github.com/oksasatya/sape-server/pkg/response"
	"github.com/oksasatya/sape-server/pkg/validation"
)

// MissingInputMessage is the body message of every missing-input response.
const MissingInputMessage = "Error"

// ErrorStatusPolicy selects the HTTP statuses for client-caused failures.
// Infrastructure failures always answer 500.
type ErrorStatusPolicy struct {
	MissingInput int
	Validation   int
}

func DefaultStatusPolicy() ErrorStatusPolicy {
	return ErrorStatusPolicy{MissingInput: http.StatusBadRequest, Validation: http.StatusUnprocessableEntity}
}

// LegacyStatusPolicy answers 500 for every failure.
func LegacyStatusPolicy() ErrorStatusPolicy {
	return ErrorStatusPolicy{MissingInput: http.StatusInternalServerError, Validation: http.StatusInternalServerError}
}

// CRUDHandler exposes create/update/delete/read/list for one resource.
type CRUDHandler[E any, D dto.Identified] struct {
	Svc    crud.Service[E, D]
	Logger *logrus.Logger
	Status ErrorStatusPolicy
}

func NewCRUDHandler[E any, D dto.Identified](svc crud.Service[E, D], logger *logrus.Logger, status ErrorStatusPolicy) *CRUDHandler[E, D] {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &CRUDHandler[E, D]{Svc: svc, Logger: logger, Status: status}
}

// Create POST /api/{resource}
func (h *CRUDHandler[E, D]) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	e, err := h.Svc.ConvertToEntity(ctx, in, h.Svc.CreateEmptyEntity())
	if err != nil {
		h.fail(c, err)
		return
	}
	saved, err := h.Svc.Save(ctx, e)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.Svc.ConvertToDTO(saved), h.Svc.Resource()+" created", nil)
}

// Update PUT /api/{resource}
func (h *CRUDHandler[E, D]) Update(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	id := (*in).GetID()
	if id == nil {
		h.fail(c, fmt.Errorf("%w: id", crud.ErrMissingInput))
		return
	}
	ctx := c.Request.Context()
	existing, err := h.Svc.GetEntity(ctx, *id)
	if err != nil {
		h.fail(c, err)
		return
	}
	e, err := h.Svc.ConvertToEntity(ctx, in, existing)
	if err != nil {
		h.fail(c, err)
		return
	}
	saved, err := h.Svc.Save(ctx, e)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.Svc.ConvertToDTO(saved), h.Svc.Resource()+" updated", nil)
}

// DeleteByID DELETE /api/{resource}?id=
func (h *CRUDHandler[E, D]) DeleteByID(c *gin.Context) {
	id, err := parseID(c.Query("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Svc.DeleteByID(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, id, h.Svc.Resource()+" deleted", nil)
}

// Read GET /api/{resource}/:id. An unknown id answers 200 with null data.
func (h *CRUDHandler[E, D]) Read(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.Svc.GetDTO(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out, "", nil)
}

// List GET /api/{resource}
func (h *CRUDHandler[E, D]) List(c *gin.Context) {
	p, err := listParams(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	if p.IsEmpty() {
		all, err := h.Svc.GetDTOs(ctx)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, http.StatusOK, all, "", nil)
		return
	}

	page, err := h.Svc.GetDTOsFiltered(ctx, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Pagination-Limit", strconv.Itoa(page.PerPage))
	c.Header("Pagination-Total-Count", strconv.Itoa(page.Total))
	c.Header("Pagination-Page-Count", strconv.Itoa(page.PageCount))
	c.Header("Pagination-Current-Page", strconv.Itoa(page.Page))
	meta := gin.H{"page": page.Page, "per_page": page.PerPage, "total": page.Total, "page_count": page.PageCount}

	if len(page.Fields) == 0 {
		response.Success(c, http.StatusOK, page.Items, "", meta)
		return
	}
	items := make([]map[string]any, 0, len(page.Items))
	for _, it := range page.Items {
		m, err := query.Select(it, page.Fields)
		if err != nil {
			h.fail(c, err)
			return
		}
		items = append(items, m)
	}
	response.Success(c, http.StatusOK, items, "", meta)
}

// bind decodes the body into a fresh DTO. An empty or null body is missing input.
func (h *CRUDHandler[E, D]) bind(c *gin.Context) (*D, bool) {
	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %w", crud.ErrMissingInput, err))
		return nil, false
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		h.fail(c, fmt.Errorf("%w: %s payload", crud.ErrMissingInput, h.Svc.Resource()))
		return nil, false
	}
	in := new(D)
	if err := binding.JSON.BindBody(trimmed, in); err != nil {
		response.Error(c, h.Status.MissingInput, MissingInputMessage, validation.ToDetails(err))
		return nil, false
	}
	return in, true
}

func (h *CRUDHandler[E, D]) fail(c *gin.Context, err error) {
	if ve, ok := crud.AsValidation(err); ok {
		response.Error(c, h.Status.Validation, ve.Message, ve)
		return
	}
	if errors.Is(err, crud.ErrMissingInput) {
		response.Error(c, h.Status.MissingInput, MissingInputMessage, err.Error())
		return
	}
	helpers.LogError(h.Logger, "crud request failed", err, logrus.Fields{
		"request_id": c.GetString("request_id"),
		"resource":   h.Svc.Resource(),
	})
	response.Error(c, http.StatusInternalServerError, "internal error", nil)
}

func parseID(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: id", crud.ErrMissingInput)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q is not a positive integer", crud.ErrMissingInput, raw)
	}
	return id, nil
}

func listParams(c *gin.Context) (query.Params, error) {
	p := query.Params{
		Filters: queryValues(c, "filters"),
		Query:   queryValues(c, "query"),
		Sort:    queryValues(c, "sort"),
		Fields:  queryValues(c, "fields"),
	}
	var err error
	if p.Page, err = optionalInt(c, "page"); err != nil {
		return p, err
	}
	if p.PerPage, err = optionalInt(c, "per_page"); err != nil {
		return p, err
	}
	return p, nil
}

func optionalInt(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", crud.ErrMissingInput, name)
	}
	return &v, nil
}

// queryValues drops blank values, so "?filters=" counts as not supplied.
func queryValues(c *gin.Context, name string) []string {
	var out []string
	for _, v := range c.QueryArray(name) {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
