package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campus360/incidencias-service/internal/authz"
	"github.com/campus360/incidencias-service/internal/domain"
	"github.com/campus360/incidencias-service/internal/events"
	"github.com/campus360/incidencias-service/internal/repository"
	apperrors "github.com/campus360/incidencias-service/pkg/util/errorutil"
)

// IncidenciaService owns the incidencia lifecycle: it consults the access
// policy before every read or mutation, drives the state machine, and records
// history entries in the same transaction as the mutation they document.
type IncidenciaService struct {
	incidencias    repository.IncidenciaRepository
	comments       repository.CommentRepository
	attachments    repository.AttachmentRepository
	history        repository.HistoryRepository
	catalogs       *CatalogService
	queries        *QueryBuilder
	tx             repository.TxManager
	dispatcher     events.Dispatcher
	cascadeHistory bool
}

// IncidenciaDependencies bundles collaborators for the lifecycle service.
type IncidenciaDependencies struct {
	IncidenciaRepo         repository.IncidenciaRepository
	CommentRepo            repository.CommentRepository
	AttachmentRepo         repository.AttachmentRepository
	HistoryRepo            repository.HistoryRepository
	Catalogs               *CatalogService
	Queries                *QueryBuilder
	TxManager              repository.TxManager
	Dispatcher             events.Dispatcher
	CascadeHistoryOnDelete bool
}

// NewIncidenciaService constructs the service.
func NewIncidenciaService(deps IncidenciaDependencies) *IncidenciaService {
	return &IncidenciaService{
		incidencias:    deps.IncidenciaRepo,
		comments:       deps.CommentRepo,
		attachments:    deps.AttachmentRepo,
		history:        deps.HistoryRepo,
		catalogs:       deps.Catalogs,
		queries:        deps.Queries,
		tx:             deps.TxManager,
		dispatcher:     deps.Dispatcher,
		cascadeHistory: deps.CascadeHistoryOnDelete,
	}
}

// CreateIncidenciaInput describes creation payload.
type CreateIncidenciaInput struct {
	Title       string
	Description string
	Priority    *domain.PriorityCode
	Category    *domain.CategoryCode
	LocationID  *string
}

// UpdateIncidenciaInput carries optional field updates. Priority is honored
// for administrators only; state and responsible have dedicated operations.
type UpdateIncidenciaInput struct {
	Title       *string
	Description *string
	Category    *domain.CategoryCode
	LocationID  *string
	Priority    *domain.PriorityCode
}

// AttachmentInput describes attachment metadata registration.
type AttachmentInput struct {
	FileName    string
	MimeType    *string
	SizeBytes   *int64
	StoragePath string
}

var allowedTransitions = map[domain.StateCode][]domain.StateCode{
	domain.StatePendiente: {domain.StateAsignada, domain.StateCancelada},
	domain.StateAsignada:  {domain.StateEnProceso, domain.StateCancelada},
	domain.StateEnProceso: {domain.StateResuelta, domain.StateCancelada},
	domain.StateResuelta:  {domain.StateCerrada, domain.StateCancelada},
	domain.StateCerrada:   {},
	domain.StateCancelada: {},
}

func isValidTransition(current, next domain.StateCode) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Create registers a new incidencia reported by the actor. Any authenticated
// actor may create; the actor becomes the immutable reporter.
func (s *IncidenciaService) Create(ctx context.Context, actor domain.Actor, input CreateIncidenciaInput) (*domain.Incidencia, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	priority := domain.PriorityMedia
	if input.Priority != nil {
		priority = *input.Priority
	}
	if _, err := s.catalogs.GetPriority(ctx, priority); err != nil {
		return nil, err
	}
	if input.Category != nil {
		if _, err := s.catalogs.GetCategory(ctx, *input.Category); err != nil {
			return nil, err
		}
	}

	incidencia := &domain.Incidencia{
		Title:       title,
		Description: description,
		State:       domain.StatePendiente,
		Priority:    priority,
		Category:    input.Category,
		ReporterID:  actor.SubjectID,
		LocationID:  input.LocationID,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.incidencias.Create(ctx, incidencia); err != nil {
			return err
		}
		return s.record(ctx, incidencia.ID, actor, domain.ActionCreated, nil, map[string]any{
			"title":    incidencia.Title,
			"state":    incidencia.State,
			"priority": incidencia.Priority,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventIncidenciaCreated,
		IncidenciaID: incidencia.ID,
		Actor:        actor,
		Payload: events.IncidenciaCreatedPayload{
			Title:    incidencia.Title,
			Priority: incidencia.Priority,
			Category: incidencia.Category,
		},
	})
	return incidencia, nil
}

// Get fetches one incidencia. Non-owners without administrator role get
// not-found, never a hint the resource exists.
func (s *IncidenciaService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Incidencia, error) {
	return s.fetchVisible(ctx, actor, id)
}

// List returns incidencias matching the caller filters within the actor's
// visibility scope.
func (s *IncidenciaService) List(ctx context.Context, actor domain.Actor, input IncidenciaListInput) ([]domain.Incidencia, error) {
	filter, err := s.queries.BuildIncidenciaFilter(ctx, actor, input)
	if err != nil {
		return nil, err
	}
	result, err := s.incidencias.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// AssignResponsible sets the responsible party. Administrators only;
// permitted while the incidencia is pendiente or asignada, and a pendiente
// incidencia moves to asignada.
func (s *IncidenciaService) AssignResponsible(ctx context.Context, actor domain.Actor, id, responsibleID string) (*domain.Incidencia, error) {
	if !authz.CanAssignResponsible(actor) {
		return nil, apperrors.NewAccessDenied("only administrators may assign a responsible party")
	}
	if strings.TrimSpace(responsibleID) == "" {
		return nil, apperrors.NewValidationError("responsible id is required", nil)
	}

	incidencia, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if incidencia.State != domain.StatePendiente && incidencia.State != domain.StateAsignada {
		return nil, apperrors.NewInvalidTransition(string(incidencia.State), string(domain.StateAsignada))
	}

	oldResponsible := incidencia.ResponsibleID
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.incidencias.AssignIf(ctx, id, responsibleID,
			[]domain.StateCode{domain.StatePendiente, domain.StateAsignada}, domain.StateAsignada)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewConflict("incidencia was modified concurrently", map[string]any{"id": id})
		}
		oldValue := map[string]any{"responsible_id": nil}
		if oldResponsible != nil {
			oldValue["responsible_id"] = *oldResponsible
		}
		newValue := map[string]any{"responsible_id": responsibleID}
		if incidencia.State == domain.StatePendiente {
			oldValue["state"] = incidencia.State
			newValue["state"] = domain.StateAsignada
		}
		return s.record(ctx, id, actor, domain.ActionAssignedResponsible, oldValue, newValue)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventResponsibleAssigned,
		IncidenciaID: id,
		Actor:        actor,
		Payload: events.ResponsibleAssignedPayload{
			OldResponsibleID: oldResponsible,
			NewResponsibleID: responsibleID,
		},
	})
	return s.fetch(ctx, id)
}

// ChangeState transitions the incidencia along the fixed state machine.
// Administrators only. resolved_at is maintained so it is set exactly while
// the incidencia is resuelta or cerrada.
func (s *IncidenciaService) ChangeState(ctx context.Context, actor domain.Actor, id string, newState domain.StateCode) (*domain.Incidencia, error) {
	if !authz.CanModifyState(actor) {
		return nil, apperrors.NewAccessDenied("only administrators may change incidencia state")
	}
	if _, err := s.catalogs.GetState(ctx, newState); err != nil {
		return nil, err
	}

	incidencia, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(incidencia.State, newState) {
		return nil, apperrors.NewInvalidTransition(string(incidencia.State), string(newState))
	}

	var resolvedAt *time.Time
	switch {
	case newState == domain.StateResuelta:
		now := time.Now()
		resolvedAt = &now
	case newState.ResolvedAtApplies():
		resolvedAt = incidencia.ResolvedAt
	}

	oldState := incidencia.State
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.incidencias.UpdateStateIf(ctx, id, oldState, newState, resolvedAt)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewConflict("incidencia state changed concurrently", map[string]any{"id": id})
		}
		return s.record(ctx, id, actor, domain.ActionStateChanged,
			map[string]any{"state": oldState},
			map[string]any{"state": newState})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventStateChanged,
		IncidenciaID: id,
		Actor:        actor,
		Payload: events.StateChangedPayload{
			OldState: oldState,
			NewState: newState,
		},
	})
	return s.fetch(ctx, id)
}

// Update applies field updates. Owners may change title, description,
// category and location; priority requires administrator role. Each changed
// field produces its own history entry. The write only touches those columns
// and is guarded on the state observed at read time, so it cannot undo a
// concurrent transition or assignment; a lost race surfaces CONFLICT.
func (s *IncidenciaService) Update(ctx context.Context, actor domain.Actor, id string, input UpdateIncidenciaInput) (*domain.Incidencia, error) {
	incidencia, err := s.fetchVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if input.Priority != nil && !authz.IsAdministrator(actor) {
		return nil, apperrors.NewAccessDenied("only administrators may change priority")
	}

	type change struct {
		action   domain.HistoryAction
		field    string
		oldValue any
		newValue any
	}
	var changes []change

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		if title != incidencia.Title {
			changes = append(changes, change{domain.ActionTitleUpdated, "title", incidencia.Title, title})
			incidencia.Title = title
		}
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, apperrors.NewValidationError("description cannot be empty", nil)
		}
		if description != incidencia.Description {
			changes = append(changes, change{domain.ActionDescriptionUpdated, "description", incidencia.Description, description})
			incidencia.Description = description
		}
	}
	if input.Category != nil {
		if _, err := s.catalogs.GetCategory(ctx, *input.Category); err != nil {
			return nil, err
		}
		if incidencia.Category == nil || *incidencia.Category != *input.Category {
			var oldCategory any
			if incidencia.Category != nil {
				oldCategory = *incidencia.Category
			}
			changes = append(changes, change{domain.ActionCategoryUpdated, "category", oldCategory, *input.Category})
			incidencia.Category = input.Category
		}
	}
	if input.LocationID != nil {
		if incidencia.LocationID == nil || *incidencia.LocationID != *input.LocationID {
			var oldLocation any
			if incidencia.LocationID != nil {
				oldLocation = *incidencia.LocationID
			}
			changes = append(changes, change{domain.ActionLocationUpdated, "location", oldLocation, *input.LocationID})
			incidencia.LocationID = input.LocationID
		}
	}
	if input.Priority != nil {
		if _, err := s.catalogs.GetPriority(ctx, *input.Priority); err != nil {
			return nil, err
		}
		if incidencia.Priority != *input.Priority {
			changes = append(changes, change{domain.ActionPriorityUpdated, "priority", incidencia.Priority, *input.Priority})
			incidencia.Priority = *input.Priority
		}
	}

	if len(changes) == 0 {
		return incidencia, nil
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.incidencias.UpdateFieldsIf(ctx, incidencia, incidencia.State)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewConflict("incidencia was modified concurrently", map[string]any{"id": id})
		}
		for _, c := range changes {
			if err := s.record(ctx, id, actor, c.action,
				map[string]any{c.field: c.oldValue},
				map[string]any{c.field: c.newValue}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	changedFields := make([]string, 0, len(changes))
	for _, c := range changes {
		changedFields = append(changedFields, c.field)
	}
	s.publishEvent(ctx, events.Event{
		Type:         events.EventIncidenciaUpdated,
		IncidenciaID: id,
		Actor:        actor,
		Payload:      events.IncidenciaUpdatedPayload{ChangedFields: changedFields},
	})
	return s.fetch(ctx, id)
}

// Delete removes the incidencia. Administrators only. Comments and
// attachments cascade; history follows the configured retention policy.
func (s *IncidenciaService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if !authz.CanDelete(actor) {
		return apperrors.NewAccessDenied("only administrators may delete incidencias")
	}
	incidencia, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.incidencias.Delete(ctx, id); err != nil {
			return err
		}
		if s.cascadeHistory {
			return s.history.DeleteByIncidencia(ctx, id)
		}
		// Retained trail documents the deletion itself.
		return s.record(ctx, id, actor, domain.ActionDeleted, map[string]any{
			"title": incidencia.Title,
			"state": incidencia.State,
		}, nil)
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventIncidenciaDeleted,
		IncidenciaID: id,
		Actor:        actor,
		Payload:      events.IncidenciaDeletedPayload{HistoryRemoved: s.cascadeHistory},
	})
	return nil
}

// AddComment appends a comment. Reporter and administrators may comment;
// internal comments are restricted to administrators.
func (s *IncidenciaService) AddComment(ctx context.Context, actor domain.Actor, id, content string, isInternal bool) (*domain.Comment, error) {
	incidencia, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanComment(actor, incidencia) {
		return nil, apperrors.NewNotFound("incidencia", nil)
	}
	if isInternal && !authz.IsAdministrator(actor) {
		return nil, apperrors.NewAccessDenied("only administrators may create internal comments")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content is required", nil)
	}

	comment := &domain.Comment{
		IncidenciaID: incidencia.ID,
		AuthorID:     actor.SubjectID,
		Content:      content,
		Internal:     isInternal,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.comments.Create(ctx, comment); err != nil {
			return err
		}
		return s.record(ctx, id, actor, domain.ActionCommentAdded, nil, map[string]any{
			"comment_id": comment.ID,
			"internal":   comment.Internal,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventCommentAdded,
		IncidenciaID: id,
		Actor:        actor,
		Payload: events.CommentAddedPayload{
			CommentID: comment.ID,
			Internal:  comment.Internal,
		},
	})
	return comment, nil
}

// ListComments returns comments visible to the actor. A request for internal
// comments by a non-administrator silently yields public comments only.
func (s *IncidenciaService) ListComments(ctx context.Context, actor domain.Actor, id string, includeInternal bool) ([]domain.Comment, error) {
	incidencia, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanComment(actor, incidencia) {
		return nil, apperrors.NewNotFound("incidencia", nil)
	}
	includeInternal = includeInternal && authz.CanViewInternalComments(actor)
	result, err := s.comments.ListByIncidencia(ctx, id, includeInternal)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// AddAttachment registers attachment metadata. The file itself is stored
// elsewhere; the path is opaque here.
func (s *IncidenciaService) AddAttachment(ctx context.Context, actor domain.Actor, id string, input AttachmentInput) (*domain.Attachment, error) {
	incidencia, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanComment(actor, incidencia) {
		return nil, apperrors.NewNotFound("incidencia", nil)
	}
	if strings.TrimSpace(input.FileName) == "" || strings.TrimSpace(input.StoragePath) == "" {
		return nil, apperrors.NewValidationError("file name and storage path are required", nil)
	}

	attachment := &domain.Attachment{
		IncidenciaID: incidencia.ID,
		FileName:     input.FileName,
		MimeType:     input.MimeType,
		SizeBytes:    input.SizeBytes,
		StoragePath:  input.StoragePath,
		UploaderID:   actor.SubjectID,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.attachments.Create(ctx, attachment); err != nil {
			return err
		}
		return s.record(ctx, id, actor, domain.ActionAttachmentAdded, nil, map[string]any{
			"attachment_id": attachment.ID,
			"file_name":     attachment.FileName,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventAttachmentAdded,
		IncidenciaID: id,
		Actor:        actor,
		Payload: events.AttachmentAddedPayload{
			AttachmentID: attachment.ID,
			FileName:     attachment.FileName,
		},
	})
	return attachment, nil
}

// ListAttachments returns attachment metadata visible to the actor.
func (s *IncidenciaService) ListAttachments(ctx context.Context, actor domain.Actor, id string) ([]domain.Attachment, error) {
	if _, err := s.fetchVisible(ctx, actor, id); err != nil {
		return nil, err
	}
	result, err := s.attachments.ListByIncidencia(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// GetHistory returns the audit trail ordered by creation time ascending.
func (s *IncidenciaService) GetHistory(ctx context.Context, actor domain.Actor, id string) ([]domain.HistoryEntry, error) {
	if _, err := s.fetchVisible(ctx, actor, id); err != nil {
		return nil, err
	}
	result, err := s.history.ListByIncidencia(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// fetch loads an incidencia, mapping a missing row to not-found.
func (s *IncidenciaService) fetch(ctx context.Context, id string) (*domain.Incidencia, error) {
	incidencia, err := s.incidencias.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("incidencia", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return incidencia, nil
}

// fetchVisible loads an incidencia and hides it from actors outside its
// visibility scope: unauthorized access reads exactly like a missing row.
func (s *IncidenciaService) fetchVisible(ctx context.Context, actor domain.Actor, id string) (*domain.Incidencia, error) {
	incidencia, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(actor, incidencia) {
		return nil, apperrors.NewNotFound("incidencia", nil)
	}
	return incidencia, nil
}

func (s *IncidenciaService) record(ctx context.Context, incidenciaID string, actor domain.Actor, action domain.HistoryAction, oldValue, newValue map[string]any) error {
	entry := &domain.HistoryEntry{
		IncidenciaID: incidenciaID,
		Action:       action,
		ActorID:      actor.SubjectID,
		OldValue:     oldValue,
		NewValue:     newValue,
	}
	return s.history.Create(ctx, entry)
}

func (s *IncidenciaService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
