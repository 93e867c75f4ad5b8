package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushub/complaint-desk-api/internal/models"
	"github.com/campushub/complaint-desk-api/internal/service"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
	"github.com/campushub/complaint-desk-api/pkg/response"
	"github.com/campushub/complaint-desk-api/pkg/storage"
)

type complaintService interface {
	Create(ctx context.Context, actor service.Actor, req service.CreateComplaintRequest) (*models.Complaint, error)
	Get(ctx context.Context, actor service.Actor, complaintNo string) (*models.ComplaintDetail, error)
	List(ctx context.Context, actor service.Actor, req service.ComplaintListRequest) ([]models.ComplaintDetail, *models.Pagination, error)
	Update(ctx context.Context, actor service.Actor, complaintNo string, req service.UpdateComplaintRequest) (*models.Complaint, error)
	Assign(ctx context.Context, actor service.Actor, complaintNo string, req service.AssignComplaintRequest) (*models.Complaint, error)
	AddFeedback(ctx context.Context, actor service.Actor, complaintNo string, req service.FeedbackRequest) (*models.Feedback, error)
	GetFeedback(ctx context.Context, actor service.Actor, complaintNo string) (*models.Feedback, error)
	History(ctx context.Context, actor service.Actor, complaintNo string) ([]models.ComplaintHistory, error)
	AttachmentPath(ctx context.Context, actor service.Actor, complaintNo string) (string, error)
}

type attachmentOpener interface {
	Open(filename string) (*os.File, error)
}

// ComplaintHandler exposes the complaint lifecycle endpoints.
type ComplaintHandler struct {
	service complaintService
	signer  *storage.SignedURLSigner
	files   attachmentOpener
}

// NewComplaintHandler builds a new handler.
func NewComplaintHandler(svc complaintService, signer *storage.SignedURLSigner, files attachmentOpener) *ComplaintHandler {
	return &ComplaintHandler{service: svc, signer: signer, files: files}
}

// Create godoc
// @Summary File a new complaint
// @Tags Complaints
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param category_id formData string false "Category ID"
// @Param priority formData string false "LOW, MEDIUM or HIGH"
// @Param attachment formData file false "Supporting document"
// @Success 201 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) Create(c *gin.Context) {
	req := service.CreateComplaintRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		CategoryID:  c.PostForm("category_id"),
		Priority:    c.PostForm("priority"),
	}
	if file, err := c.FormFile("attachment"); err == nil && file != nil {
		src, openErr := file.Open()
		if openErr != nil {
			response.Error(c, appErrors.Wrap(openErr, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read attachment"))
			return
		}
		defer src.Close()
		req.Attachment = &service.AttachmentUpload{
			Filename: file.Filename,
			Size:     file.Size,
			Reader:   src,
		}
	}

	complaint, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, complaint)
}

// Get godoc
// @Summary Fetch a complaint by ticket number
// @Tags Complaints
// @Produce json
// @Security BearerAuth
// @Param complaintNo path string true "Ticket number"
// @Success 200 {object} response.Envelope
// @Router /complaints/{complaintNo} [get]
func (h *ComplaintHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("complaintNo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// List godoc
// @Summary List complaints visible to the caller
// @Tags Complaints
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param priority query string false "Priority filter"
// @Param category_id query string false "Category filter"
// @Param search query string false "Matches title, description or ticket number"
// @Param from query string false "Created on or after (YYYY-MM-DD)"
// @Param to query string false "Created before (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	req := service.ComplaintListRequest{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		CategoryID: c.Query("category_id"),
		Search:     c.Query("search"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
	}
	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "from must be YYYY-MM-DD"))
			return
		}
		req.DateFrom = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "to must be YYYY-MM-DD"))
			return
		}
		req.DateTo = &ts
	}

	items, pagination, err := h.service.List(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Update godoc
// @Summary Update a complaint
// @Description Which fields are accepted depends on the caller's role.
// @Tags Complaints
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param complaintNo path string true "Ticket number"
// @Param payload body service.UpdateComplaintRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /complaints/{complaintNo} [put]
func (h *ComplaintHandler) Update(c *gin.Context) {
	var req service.UpdateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}
	complaint, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("complaintNo"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaint, nil)
}

// Assign godoc
// @Summary Assign a complaint to a faculty member
// @Tags Complaints
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param complaintNo path string true "Ticket number"
// @Param payload body service.AssignComplaintRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Router /complaints/{complaintNo}/assign [post]
func (h *ComplaintHandler) Assign(c *gin.Context) {
	var req service.AssignComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	complaint, err := h.service.Assign(c.Request.Context(), actorFromContext(c), c.Param("complaintNo"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaint, nil)
}

// AddFeedback godoc
// @Summary Rate a resolved complaint
// @Tags Complaints
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param complaintNo path string true "Ticket number"
// @Param payload body service.FeedbackRequest true "Rating"
// @Success 201 {object} response.Envelope
// @Router /complaints/{complaintNo}/feedback [post]
func (h *ComplaintHandler) AddFeedback(c *gin.Context) {
	var req service.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}
	feedback, err := h.service.AddFeedback(c.Request.Context(), actorFromContext(c), c.Param("complaintNo"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feedback)
}

// GetFeedback godoc
// @Summary Fetch the feedback left on a complaint
// @Tags Complaints
// @Produce json
// @Security BearerAuth
// @Param complaintNo path string true "Ticket number"
// @Success 200 {object} response.Envelope
// @Router /complaints/{complaintNo}/feedback [get]
func (h *ComplaintHandler) GetFeedback(c *gin.Context) {
	feedback, err := h.service.GetFeedback(c.Request.Context(), actorFromContext(c), c.Param("complaintNo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, nil)
}

// History godoc
// @Summary List the status ledger of a complaint, newest first
// @Tags Complaints
// @Produce json
// @Security BearerAuth
// @Param complaintNo path string true "Ticket number"
// @Success 200 {object} response.Envelope
// @Router /complaints/{complaintNo}/history [get]
func (h *ComplaintHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), actorFromContext(c), c.Param("complaintNo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// AttachmentLink godoc
// @Summary Issue a signed download link for a complaint attachment
// @Tags Complaints
// @Produce json
// @Security BearerAuth
// @Param complaintNo path string true "Ticket number"
// @Success 200 {object} response.Envelope
// @Router /complaints/{complaintNo}/attachment [get]
func (h *ComplaintHandler) AttachmentLink(c *gin.Context) {
	complaintNo := c.Param("complaintNo")
	relPath, err := h.service.AttachmentPath(c.Request.Context(), actorFromContext(c), complaintNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	token, expiresAt, err := h.signer.Generate(complaintNo, relPath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "could not sign download link"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"url":        fmt.Sprintf("/api/v1/attachments/download?token=%s", token),
		"expires_at": expiresAt,
	}, nil)
}

// DownloadAttachment godoc
// @Summary Download an attachment using a signed token
// @Tags Complaints
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /attachments/download [get]
func (h *ComplaintHandler) DownloadAttachment(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Wrap(nil, appErrors.ErrValidation.Code, http.StatusBadRequest, "token is required"))
		return
	}
	_, relPath, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid or expired download link"))
		return
	}
	file, err := h.files.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrNotFound.Code, http.StatusNotFound, "attachment not found"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "could not stat attachment"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
