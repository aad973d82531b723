package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/campus360/incidencias-service/internal/api/dto"
	"github.com/campus360/incidencias-service/internal/auth"
	"github.com/campus360/incidencias-service/internal/domain"
	"github.com/campus360/incidencias-service/internal/service"
	apperrors "github.com/campus360/incidencias-service/pkg/util/errorutil"
)

// IncidenciasHandler manages incidencia endpoints.
type IncidenciasHandler struct {
	service *service.IncidenciaService
}

// NewIncidenciasHandler constructs handler.
func NewIncidenciasHandler(incidenciaService *service.IncidenciaService) *IncidenciasHandler {
	return &IncidenciasHandler{service: incidenciaService}
}

// Create POST /incidencias.
func (h *IncidenciasHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	var req dto.CreateIncidenciaRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.CreateIncidenciaInput{
		Title:       req.Title,
		Description: req.Description,
		LocationID:  req.LocationID,
	}
	if req.Priority != nil {
		priority := domain.PriorityCode(*req.Priority)
		input.Priority = &priority
	}
	if req.Category != nil {
		category := domain.CategoryCode(*req.Category)
		input.Category = &category
	}

	incidencia, err := h.service.Create(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": incidenciaResponse(incidencia)})
}

// List GET /incidencias.
func (h *IncidenciasHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	input := parseListQuery(c)
	incidencias, err := h.service.List(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	items := make([]dto.IncidenciaResponse, 0, len(incidencias))
	for i := range incidencias {
		items = append(items, incidenciaResponse(&incidencias[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /incidencias/:id.
func (h *IncidenciasHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	incidencia, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidenciaResponse(incidencia)})
}

// Update PATCH /incidencias/:id.
func (h *IncidenciasHandler) Update(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	var req dto.UpdateIncidenciaRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.UpdateIncidenciaInput{
		Title:       req.Title,
		Description: req.Description,
		LocationID:  req.LocationID,
	}
	if req.Category != nil {
		category := domain.CategoryCode(*req.Category)
		input.Category = &category
	}
	if req.Priority != nil {
		priority := domain.PriorityCode(*req.Priority)
		input.Priority = &priority
	}

	incidencia, err := h.service.Update(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidenciaResponse(incidencia)})
}

// Delete DELETE /incidencias/:id.
func (h *IncidenciasHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	if err := h.service.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AssignResponsible POST /incidencias/:id/responsible.
func (h *IncidenciasHandler) AssignResponsible(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	var req dto.AssignResponsibleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	incidencia, err := h.service.AssignResponsible(c.UserContext(), actor, c.Params("id"), req.ResponsibleID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidenciaResponse(incidencia)})
}

// ChangeState POST /incidencias/:id/state.
func (h *IncidenciasHandler) ChangeState(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	var req dto.ChangeStateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	incidencia, err := h.service.ChangeState(c.UserContext(), actor, c.Params("id"), domain.StateCode(req.State))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidenciaResponse(incidencia)})
}

// AddComment POST /incidencias/:id/comments.
func (h *IncidenciasHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.UserContext(), actor, c.Params("id"), req.Content, req.Internal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /incidencias/:id/comments.
func (h *IncidenciasHandler) ListComments(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	includeInternal := c.QueryBool("include_internal", false)
	comments, err := h.service.ListComments(c.UserContext(), actor, c.Params("id"), includeInternal)
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddAttachment POST /incidencias/:id/attachments.
func (h *IncidenciasHandler) AddAttachment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	var req dto.CreateAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	attachment, err := h.service.AddAttachment(c.UserContext(), actor, c.Params("id"), service.AttachmentInput{
		FileName:    req.FileName,
		MimeType:    req.MimeType,
		SizeBytes:   req.SizeBytes,
		StoragePath: req.StoragePath,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(attachment)})
}

// ListAttachments GET /incidencias/:id/attachments.
func (h *IncidenciasHandler) ListAttachments(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	attachments, err := h.service.ListAttachments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		items = append(items, attachmentResponse(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetHistory GET /incidencias/:id/history.
func (h *IncidenciasHandler) GetHistory(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	entries, err := h.service.GetHistory(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.HistoryEntryResponse{
			ID:        entry.ID,
			Action:    entry.Action,
			ActorID:   entry.ActorID,
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseListQuery(c *fiber.Ctx) service.IncidenciaListInput {
	input := service.IncidenciaListInput{}
	if val := c.Query("state"); val != "" {
		code := domain.StateCode(val)
		input.StateCode = &code
	}
	if val := c.Query("priority"); val != "" {
		code := domain.PriorityCode(val)
		input.PriorityCode = &code
	}
	if val := c.Query("category"); val != "" {
		code := domain.CategoryCode(val)
		input.CategoryCode = &code
	}
	if val := c.Query("reporter_id"); val != "" {
		input.ReporterID = &val
	}
	if val := c.Query("responsible_id"); val != "" {
		input.ResponsibleID = &val
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	input.Offset = (page - 1) * pageSize
	input.Limit = pageSize
	return input
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func incidenciaResponse(incidencia *domain.Incidencia) dto.IncidenciaResponse {
	return dto.IncidenciaResponse{
		ID:            incidencia.ID,
		Title:         incidencia.Title,
		Description:   incidencia.Description,
		State:         incidencia.State,
		Priority:      incidencia.Priority,
		Category:      incidencia.Category,
		ReporterID:    incidencia.ReporterID,
		ResponsibleID: incidencia.ResponsibleID,
		LocationID:    incidencia.LocationID,
		CreatedAt:     incidencia.CreatedAt,
		UpdatedAt:     incidencia.UpdatedAt,
		ResolvedAt:    incidencia.ResolvedAt,
	}
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		Internal:  comment.Internal,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

func attachmentResponse(attachment *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:         attachment.ID,
		FileName:   attachment.FileName,
		MimeType:   attachment.MimeType,
		SizeBytes:  attachment.SizeBytes,
		UploaderID: attachment.UploaderID,
		CreatedAt:  attachment.CreatedAt,
	}
}
