// Package projects exposes the project CRUD endpoints.
package projects

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"edms-backend/internal/shared/server/respond"
	"edms-backend/internal/store"
)

// Handler wires HTTP handlers to the store.
type Handler struct {
	Store store.Store
}

// NewHandler constructs a Handler.
func NewHandler(st store.Store) *Handler {
	return &Handler{Store: st}
}

// RegisterRoutes attaches project routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/projects", h.list)
	rg.GET("/projects/recent", h.recent)
	rg.POST("/projects", h.create)
	rg.GET("/projects/:id", h.get)
	rg.PATCH("/projects/:id", h.update)
	rg.DELETE("/projects/:id", h.remove)
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location" binding:"required"`
	Status      string `json:"status" binding:"omitempty,oneof=active pending completed"`
	Image       string `json:"image"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

type updateProjectRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1"`
	Description *string `json:"description"`
	Location    *string `json:"location" binding:"omitempty,min=1"`
	Status      *string `json:"status" binding:"omitempty,oneof=active pending completed"`
	Image       *string `json:"image"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
}

func (h *Handler) list(c *gin.Context) {
	projects, err := h.Store.GetProjects(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch projects", nil)
		return
	}
	respond.OK(c, projects)
}

func (h *Handler) recent(c *gin.Context) {
	limit := store.DefaultRecentProjects
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	projects, err := h.Store.GetRecentProjects(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch projects", nil)
		return
	}
	respond.OK(c, projects)
}

func (h *Handler) create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid project payload", validationDetails(err))
		return
	}

	status := req.Status
	if status == "" {
		status = store.StatusActive
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "startDate is not a valid date", nil)
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "endDate is not a valid date", nil)
		return
	}

	project, err := h.Store.CreateProject(c.Request.Context(), store.NewProject{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Location:    strings.TrimSpace(req.Location),
		Status:      status,
		Image:       req.Image,
		StartDate:   startDate,
		EndDate:     endDate,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create project", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, project)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	project, err := h.Store.GetProject(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "project not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch project", nil)
		return
	}
	respond.OK(c, project)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid project payload", validationDetails(err))
		return
	}

	patch := store.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Status:      req.Status,
		Image:       req.Image,
	}
	if req.StartDate != nil {
		t, err := parseDate(*req.StartDate)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "startDate is not a valid date", nil)
			return
		}
		patch.StartDate = t
	}
	if req.EndDate != nil {
		t, err := parseDate(*req.EndDate)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "endDate is not a valid date", nil)
			return
		}
		patch.EndDate = t
	}

	project, err := h.Store.UpdateProject(c.Request.Context(), id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "project not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update project", nil)
		return
	}
	respond.OK(c, project)
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	deleted, err := h.Store.DeleteProject(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete project", nil)
		return
	}
	if !deleted {
		respond.Error(c, http.StatusNotFound, "not_found", "project not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "id must be a positive integer", nil)
		return 0, false
	}
	c.Set("projectId", id)
	return id, true
}

// parseDate accepts RFC3339 timestamps or bare yyyy-mm-dd dates. An empty
// string means the field was not supplied.
func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// validationDetails flattens validator errors into a field list suitable
// for the error envelope.
func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, map[string]string{
			"field": fe.Field(),
			"rule":  fe.Tag(),
		})
	}
	return map[string]any{"fields": fields}
}
