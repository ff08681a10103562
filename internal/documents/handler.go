// Package documents exposes the document endpoints, including the upload
// pipeline that routes file bytes to a storage backend and kicks off
// background analysis.
package documents

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"edms-backend/internal/blob"
	"edms-backend/internal/enrich"
	"edms-backend/internal/shared/server/respond"
	"edms-backend/internal/shared/telemetry"
	"edms-backend/internal/store"
)

// maxUploadSize caps the whole multipart request body.
const maxUploadSize = 20 << 20 // 20MB

// defaultUserID is the seeded admin; authentication is out of scope.
const defaultUserID = 1

// Enricher is the background analysis entry point.
type Enricher interface {
	Submit(docID int, filePath, fileType, fileName string)
}

// Handler wires HTTP handlers to the store, the blob router and the
// enrichment service.
type Handler struct {
	Store     store.Store
	Blob      *blob.Router
	Enricher  Enricher
	UploadDir string

	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(st store.Store, router *blob.Router, enricher Enricher, uploadDir string) *Handler {
	return &Handler{
		Store:     st,
		Blob:      router,
		Enricher:  enricher,
		UploadDir: uploadDir,
		validate:  validator.New(),
	}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents", h.list)
	rg.GET("/documents/recent", h.recent)
	rg.POST("/documents/upload", h.upload)
	rg.GET("/documents/:id", h.get)
	rg.PATCH("/documents/:id", h.update)
	rg.DELETE("/documents/:id", h.remove)
	rg.GET("/projects/:id/documents", h.listByProject)
}

// uploadPayload is validated before anything is persisted.
type uploadPayload struct {
	Name        string `validate:"required,min=1"`
	Type        string `validate:"required,min=1"`
	UserID      int    `validate:"required,gt=0"`
	FilePath    string `validate:"required"`
	StorageType string `validate:"required,oneof=supabase googledrive"`
	FileSize    int64  `validate:"gte=0"`
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "uploaded file exceeds the 20MB limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = fileHeader.Filename
	}
	fileType := strings.ToUpper(strings.TrimPrefix(filepath.Ext(fileHeader.Filename), "."))

	var projectID *int
	if v := strings.TrimSpace(c.PostForm("projectId")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "projectId must be a positive integer", nil)
			return
		}
		projectID = &parsed
	}

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to spool upload", nil)
		return
	}
	tempPath := filepath.Join(h.UploadDir, fmt.Sprintf("%d-%s%s",
		time.Now().UnixMilli(), uuid.NewString(), filepath.Ext(fileHeader.Filename)))
	if err := c.SaveUploadedFile(fileHeader, tempPath); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to spool upload", nil)
		return
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			telemetry.Info("upload.temp_cleanup_failed", map[string]any{
				"path":  tempPath,
				"error": err.Error(),
			})
		}
	}()

	// The resolved display name, not the wire filename, is what the backend
	// stores the object under and what any placeholder locator carries.
	mimeType := fileHeader.Header.Get("Content-Type")
	result := h.Blob.Store(c.Request.Context(), tempPath, name, mimeType, fileHeader.Size)

	payload := uploadPayload{
		Name:        name,
		Type:        fileType,
		UserID:      defaultUserID,
		FilePath:    result.URL,
		StorageType: result.Backend,
		FileSize:    fileHeader.Size,
	}
	if err := h.validate.Struct(payload); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid document payload", validationDetails(err))
		return
	}

	doc, err := h.Store.CreateDocument(c.Request.Context(), store.NewDocument{
		Name:        payload.Name,
		Description: c.PostForm("description"),
		Type:        payload.Type,
		ProjectID:   projectID,
		UserID:      payload.UserID,
		FilePath:    payload.FilePath,
		StorageType: payload.StorageType,
		FileSize:    payload.FileSize,
		MimeType:    mimeType,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create document", nil)
		return
	}

	c.Set("documentId", doc.ID)

	if enrich.Eligible(doc.Type) {
		h.Enricher.Submit(doc.ID, tempPath, doc.Type, name)
	}

	respond.JSON(c, http.StatusCreated, doc)
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Store.GetDocuments(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch documents", nil)
		return
	}
	respond.OK(c, docs)
}

func (h *Handler) recent(c *gin.Context) {
	limit := store.DefaultRecentDocuments
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	docs, err := h.Store.GetRecentDocuments(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch documents", nil)
		return
	}
	respond.OK(c, docs)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c, "documentId")
	if !ok {
		return
	}
	doc, err := h.Store.GetDocument(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		return
	}
	respond.OK(c, doc)
}

type updateDocumentRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1"`
	Description *string `json:"description"`
	ProjectID   *int    `json:"projectId" binding:"omitempty,gt=0"`
}

func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c, "documentId")
	if !ok {
		return
	}

	var req updateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid document payload", validationDetails(err))
		return
	}

	doc, err := h.Store.UpdateDocument(c.Request.Context(), id, store.DocumentUpdate{
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update document", nil)
		return
	}
	respond.OK(c, doc)
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := pathID(c, "documentId")
	if !ok {
		return
	}
	deleted, err := h.Store.DeleteDocument(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		return
	}
	if !deleted {
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listByProject(c *gin.Context) {
	id, ok := pathID(c, "projectId")
	if !ok {
		return
	}
	if _, err := h.Store.GetProject(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "project not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch project", nil)
		return
	}
	docs, err := h.Store.GetDocumentsByProject(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch documents", nil)
		return
	}
	respond.OK(c, docs)
}

func pathID(c *gin.Context, logKey string) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "id must be a positive integer", nil)
		return 0, false
	}
	c.Set(logKey, id)
	return id, true
}

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
