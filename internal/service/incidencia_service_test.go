package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus360/incidencias-service/internal/domain"
	"github.com/campus360/incidencias-service/internal/events"
	"github.com/campus360/incidencias-service/internal/repository"
	apperrors "github.com/campus360/incidencias-service/pkg/util/errorutil"
)

var (
	adminActor   = domain.Actor{SubjectID: "admin-1", Role: "administrador"}
	studentActor = domain.Actor{SubjectID: "s1", Role: "estudiante"}
	otherActor   = domain.Actor{SubjectID: "s2", Role: "estudiante"}
)

type fakeCatalogRepo struct {
	states     map[domain.StateCode]domain.State
	priorities map[domain.PriorityCode]domain.Priority
	categories map[domain.CategoryCode]domain.Category
	lookups    int
}

func seededCatalogRepo() *fakeCatalogRepo {
	repo := &fakeCatalogRepo{
		states:     map[domain.StateCode]domain.State{},
		priorities: map[domain.PriorityCode]domain.Priority{},
		categories: map[domain.CategoryCode]domain.Category{},
	}
	for i, code := range []domain.StateCode{
		domain.StatePendiente, domain.StateAsignada, domain.StateEnProceso,
		domain.StateResuelta, domain.StateCerrada, domain.StateCancelada,
	} {
		repo.states[code] = domain.State{ID: int32(i + 1), Code: code, Name: string(code), Order: int32(i + 1), Active: true}
	}
	for i, code := range []domain.PriorityCode{
		domain.PriorityBaja, domain.PriorityMedia, domain.PriorityAlta, domain.PriorityUrgente,
	} {
		repo.priorities[code] = domain.Priority{ID: int32(i + 1), Code: code, Name: string(code), Level: int32(i + 1), Active: true}
	}
	for i, code := range []domain.CategoryCode{"infraestructura", "tecnologia", "servicios", "seguridad", "limpieza", "otros"} {
		repo.categories[code] = domain.Category{ID: int32(i + 1), Code: code, Name: string(code), Active: true}
	}
	return repo
}

func (r *fakeCatalogRepo) GetStateByCode(_ context.Context, code domain.StateCode) (*domain.State, error) {
	r.lookups++
	if state, ok := r.states[code]; ok {
		return &state, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCatalogRepo) GetPriorityByCode(_ context.Context, code domain.PriorityCode) (*domain.Priority, error) {
	r.lookups++
	if priority, ok := r.priorities[code]; ok {
		return &priority, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCatalogRepo) GetCategoryByCode(_ context.Context, code domain.CategoryCode) (*domain.Category, error) {
	r.lookups++
	if category, ok := r.categories[code]; ok {
		return &category, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCatalogRepo) ListStates(context.Context) ([]domain.State, error) {
	result := make([]domain.State, 0, len(r.states))
	for _, state := range r.states {
		result = append(result, state)
	}
	return result, nil
}

func (r *fakeCatalogRepo) ListPriorities(context.Context) ([]domain.Priority, error) {
	result := make([]domain.Priority, 0, len(r.priorities))
	for _, priority := range r.priorities {
		result = append(result, priority)
	}
	return result, nil
}

func (r *fakeCatalogRepo) ListCategories(context.Context) ([]domain.Category, error) {
	result := make([]domain.Category, 0, len(r.categories))
	for _, category := range r.categories {
		result = append(result, category)
	}
	return result, nil
}

type fakeIncidenciaRepo struct {
	rows map[string]*domain.Incidencia
}

func newFakeIncidenciaRepo() *fakeIncidenciaRepo {
	return &fakeIncidenciaRepo{rows: map[string]*domain.Incidencia{}}
}

func (r *fakeIncidenciaRepo) Create(_ context.Context, incidencia *domain.Incidencia) error {
	incidencia.ID = uuid.NewString()
	incidencia.CreatedAt = time.Now()
	clone := *incidencia
	r.rows[incidencia.ID] = &clone
	return nil
}

func (r *fakeIncidenciaRepo) GetByID(_ context.Context, id string) (*domain.Incidencia, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *row
	return &clone, nil
}

func (r *fakeIncidenciaRepo) UpdateFieldsIf(_ context.Context, incidencia *domain.Incidencia, expected domain.StateCode) (bool, error) {
	row, ok := r.rows[incidencia.ID]
	if !ok || row.State != expected {
		return false, nil
	}
	now := time.Now()
	row.Title = incidencia.Title
	row.Description = incidencia.Description
	row.Category = incidencia.Category
	row.LocationID = incidencia.LocationID
	row.Priority = incidencia.Priority
	row.UpdatedAt = &now
	return true, nil
}

func (r *fakeIncidenciaRepo) UpdateStateIf(_ context.Context, id string, expected, next domain.StateCode, resolvedAt *time.Time) (bool, error) {
	row, ok := r.rows[id]
	if !ok || row.State != expected {
		return false, nil
	}
	row.State = next
	row.ResolvedAt = resolvedAt
	return true, nil
}

func (r *fakeIncidenciaRepo) AssignIf(_ context.Context, id, responsibleID string, expected []domain.StateCode, next domain.StateCode) (bool, error) {
	row, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, state := range expected {
		if row.State == state {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	row.ResponsibleID = &responsibleID
	row.State = next
	return true, nil
}

func (r *fakeIncidenciaRepo) ListWithFilter(_ context.Context, filter repository.IncidenciaFilter) ([]domain.Incidencia, error) {
	var result []domain.Incidencia
	for _, row := range r.rows {
		if filter.ReporterID != nil && row.ReporterID != *filter.ReporterID {
			continue
		}
		if filter.ResponsibleID != nil && (row.ResponsibleID == nil || *row.ResponsibleID != *filter.ResponsibleID) {
			continue
		}
		if filter.StateCode != nil && row.State != *filter.StateCode {
			continue
		}
		if filter.PriorityCode != nil && row.Priority != *filter.PriorityCode {
			continue
		}
		if filter.CategoryCode != nil && (row.Category == nil || *row.Category != *filter.CategoryCode) {
			continue
		}
		result = append(result, *row)
	}
	return result, nil
}

func (r *fakeIncidenciaRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.rows, id)
	return nil
}

type fakeCommentRepo struct {
	comments []domain.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByIncidencia(_ context.Context, incidenciaID string, includeInternal bool) ([]domain.Comment, error) {
	var result []domain.Comment
	for _, comment := range r.comments {
		if comment.IncidenciaID != incidenciaID {
			continue
		}
		if comment.Internal && !includeInternal {
			continue
		}
		result = append(result, comment)
	}
	return result, nil
}

type fakeAttachmentRepo struct {
	attachments []domain.Attachment
}

func (r *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	attachment.ID = uuid.NewString()
	attachment.CreatedAt = time.Now()
	r.attachments = append(r.attachments, *attachment)
	return nil
}

func (r *fakeAttachmentRepo) ListByIncidencia(_ context.Context, incidenciaID string) ([]domain.Attachment, error) {
	var result []domain.Attachment
	for _, attachment := range r.attachments {
		if attachment.IncidenciaID == incidenciaID {
			result = append(result, attachment)
		}
	}
	return result, nil
}

type fakeHistoryRepo struct {
	entries []domain.HistoryEntry
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.HistoryEntry) error {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByIncidencia(_ context.Context, incidenciaID string) ([]domain.HistoryEntry, error) {
	var result []domain.HistoryEntry
	for _, entry := range r.entries {
		if entry.IncidenciaID == incidenciaID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeHistoryRepo) DeleteByIncidencia(_ context.Context, incidenciaID string) error {
	kept := r.entries[:0]
	for _, entry := range r.entries {
		if entry.IncidenciaID != incidenciaID {
			kept = append(kept, entry)
		}
	}
	r.entries = kept
	return nil
}

func (r *fakeHistoryRepo) forIncidencia(id string) []domain.HistoryEntry {
	var result []domain.HistoryEntry
	for _, entry := range r.entries {
		if entry.IncidenciaID == id {
			result = append(result, entry)
		}
	}
	return result
}

type fakeTxManager struct{}

func (fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type serviceFixture struct {
	incidencias *fakeIncidenciaRepo
	comments    *fakeCommentRepo
	attachments *fakeAttachmentRepo
	history     *fakeHistoryRepo
	catalogRepo *fakeCatalogRepo
	dispatcher  events.Dispatcher
}

func newTestService(cascadeHistory bool) (*IncidenciaService, *serviceFixture) {
	fixture := &serviceFixture{
		incidencias: newFakeIncidenciaRepo(),
		comments:    &fakeCommentRepo{},
		attachments: &fakeAttachmentRepo{},
		history:     &fakeHistoryRepo{},
		catalogRepo: seededCatalogRepo(),
		dispatcher:  events.NewInMemoryDispatcher(),
	}
	catalogs := NewCatalogService(fixture.catalogRepo, nil, 0, zap.NewNop())
	svc := NewIncidenciaService(IncidenciaDependencies{
		IncidenciaRepo:         fixture.incidencias,
		CommentRepo:            fixture.comments,
		AttachmentRepo:         fixture.attachments,
		HistoryRepo:            fixture.history,
		Catalogs:               catalogs,
		Queries:                NewQueryBuilder(catalogs),
		TxManager:              fakeTxManager{},
		Dispatcher:             fixture.dispatcher,
		CascadeHistoryOnDelete: cascadeHistory,
	})
	return svc, fixture
}

func mustCreate(t *testing.T, svc *IncidenciaService, actor domain.Actor, title string) *domain.Incidencia {
	t.Helper()
	incidencia, err := svc.Create(context.Background(), actor, CreateIncidenciaInput{
		Title:       title,
		Description: "something is broken",
	})
	require.NoError(t, err)
	return incidencia
}

func TestCreateDefaultsAndRecordsHistory(t *testing.T) {
	svc, fixture := newTestService(false)

	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	assert.Equal(t, domain.StatePendiente, incidencia.State)
	assert.Equal(t, domain.PriorityMedia, incidencia.Priority)
	assert.Equal(t, "s1", incidencia.ReporterID)
	assert.Nil(t, incidencia.ResponsibleID)
	assert.Nil(t, incidencia.ResolvedAt)

	entries := fixture.history.forIncidencia(incidencia.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionCreated, entries[0].Action)
	assert.Equal(t, "s1", entries[0].ActorID)
	assert.Nil(t, entries[0].OldValue)
	assert.Equal(t, "Broken projector", entries[0].NewValue["title"])
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	_, err := svc.Create(ctx, studentActor, CreateIncidenciaInput{Title: "  ", Description: "d"})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = svc.Create(ctx, studentActor, CreateIncidenciaInput{Title: "t", Description: "\t"})
	assert.True(t, apperrors.IsValidationError(err))

	bogus := domain.PriorityCode("critical")
	_, err = svc.Create(ctx, studentActor, CreateIncidenciaInput{Title: "t", Description: "d", Priority: &bogus})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestGetHidesForeignIncidencia(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	_, err := svc.Get(ctx, otherActor, incidencia.ID)
	assert.True(t, apperrors.IsNotFound(err), "non-owner must see not-found, not forbidden")

	got, err := svc.Get(ctx, adminActor, incidencia.ID)
	require.NoError(t, err)
	assert.Equal(t, incidencia.ID, got.ID)

	got, err = svc.Get(ctx, studentActor, incidencia.ID)
	require.NoError(t, err)
	assert.Equal(t, incidencia.ID, got.ID)
}

func TestAssignResponsible(t *testing.T) {
	svc, fixture := newTestService(false)
	ctx := context.Background()
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	_, err := svc.AssignResponsible(ctx, studentActor, incidencia.ID, "tech1")
	assert.True(t, apperrors.IsAccessDenied(err))

	_, err = svc.AssignResponsible(ctx, adminActor, incidencia.ID, "  ")
	assert.True(t, apperrors.IsValidationError(err))

	updated, err := svc.AssignResponsible(ctx, adminActor, incidencia.ID, "tech1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAsignada, updated.State)
	require.NotNil(t, updated.ResponsibleID)
	assert.Equal(t, "tech1", *updated.ResponsibleID)

	entries := fixture.history.forIncidencia(incidencia.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ActionAssignedResponsible, entries[1].Action)
	assert.Equal(t, "admin-1", entries[1].ActorID)
	assert.Nil(t, entries[1].OldValue["responsible_id"])
	assert.Equal(t, "tech1", entries[1].NewValue["responsible_id"])
	assert.Equal(t, domain.StatePendiente, entries[1].OldValue["state"])
	assert.Equal(t, domain.StateAsignada, entries[1].NewValue["state"])

	// Reassignment while still asignada is allowed; the snapshot only
	// mentions the state when a transition actually happened.
	updated, err = svc.AssignResponsible(ctx, adminActor, incidencia.ID, "tech2")
	require.NoError(t, err)
	assert.Equal(t, "tech2", *updated.ResponsibleID)
	assert.Equal(t, domain.StateAsignada, updated.State)

	entries = fixture.history.forIncidencia(incidencia.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, "tech1", entries[2].OldValue["responsible_id"])
	assert.Equal(t, "tech2", entries[2].NewValue["responsible_id"])
	assert.NotContains(t, entries[2].OldValue, "state")
	assert.NotContains(t, entries[2].NewValue, "state")
}

func TestAssignResponsibleRejectedAfterWorkStarts(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	_, err := svc.AssignResponsible(ctx, adminActor, incidencia.ID, "tech1")
	require.NoError(t, err)
	_, err = svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateEnProceso)
	require.NoError(t, err)

	_, err = svc.AssignResponsible(ctx, adminActor, incidencia.ID, "tech2")
	assert.True(t, apperrors.IsInvalidTransition(err))
}

func TestChangeStateRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(false)
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	_, err := svc.ChangeState(context.Background(), studentActor, incidencia.ID, domain.StateCancelada)
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestStateMachineTransitions(t *testing.T) {
	all := []domain.StateCode{
		domain.StatePendiente, domain.StateAsignada, domain.StateEnProceso,
		domain.StateResuelta, domain.StateCerrada, domain.StateCancelada,
	}
	allowed := map[string]bool{
		"pendiente>asignada":   true,
		"pendiente>cancelada":  true,
		"asignada>en_proceso":  true,
		"asignada>cancelada":   true,
		"en_proceso>resuelta":  true,
		"en_proceso>cancelada": true,
		"resuelta>cerrada":     true,
		"resuelta>cancelada":   true,
	}

	for _, from := range all {
		for _, to := range all {
			if from == to {
				continue
			}
			key := string(from) + ">" + string(to)
			t.Run(strings.ReplaceAll(key, ">", "_to_"), func(t *testing.T) {
				svc, fixture := newTestService(false)
				incidencia := mustCreate(t, svc, studentActor, "Broken projector")
				fixture.incidencias.rows[incidencia.ID].State = from

				_, err := svc.ChangeState(context.Background(), adminActor, incidencia.ID, to)
				if allowed[key] {
					assert.NoError(t, err)
				} else {
					assert.True(t, apperrors.IsInvalidTransition(err), "expected invalid transition for %s", key)
				}
			})
		}
	}
}

func TestResolvedAtLifecycle(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	_, err := svc.AssignResponsible(ctx, adminActor, incidencia.ID, "tech1")
	require.NoError(t, err)
	current, err := svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateEnProceso)
	require.NoError(t, err)
	assert.Nil(t, current.ResolvedAt)

	current, err = svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateResuelta)
	require.NoError(t, err)
	require.NotNil(t, current.ResolvedAt)
	resolvedAt := *current.ResolvedAt

	current, err = svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateCerrada)
	require.NoError(t, err)
	require.NotNil(t, current.ResolvedAt)
	assert.Equal(t, resolvedAt, *current.ResolvedAt, "closing must preserve the resolution timestamp")
}

func TestResolvedAtClearedOnCancel(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	_, err := svc.AssignResponsible(ctx, adminActor, incidencia.ID, "tech1")
	require.NoError(t, err)
	_, err = svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateEnProceso)
	require.NoError(t, err)
	_, err = svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateResuelta)
	require.NoError(t, err)

	current, err := svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateCancelada)
	require.NoError(t, err)
	assert.Nil(t, current.ResolvedAt)
}

func TestChangeStateConflictOnConcurrentModification(t *testing.T) {
	svc, fixture := newTestService(false)
	ctx := context.Background()
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	// Simulate a concurrent writer: the fetch sees pendiente, then the row
	// changes before the compare-and-set runs.
	svcRow := fixture.incidencias.rows[incidencia.ID]
	orig := svc.incidencias
	svc.incidencias = raceIncidenciaRepo{inner: orig, row: svcRow}
	defer func() { svc.incidencias = orig }()

	_, err := svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateAsignada)
	assert.True(t, apperrors.IsConflict(err))
}

// raceIncidenciaRepo flips the row state after the first read so the
// compare-and-set inside the transaction misses.
type raceIncidenciaRepo struct {
	inner repository.IncidenciaRepository
	row   *domain.Incidencia
}

func (r raceIncidenciaRepo) Create(ctx context.Context, incidencia *domain.Incidencia) error {
	return r.inner.Create(ctx, incidencia)
}

func (r raceIncidenciaRepo) GetByID(ctx context.Context, id string) (*domain.Incidencia, error) {
	result, err := r.inner.GetByID(ctx, id)
	r.row.State = domain.StateCancelada
	return result, err
}

func (r raceIncidenciaRepo) UpdateFieldsIf(ctx context.Context, incidencia *domain.Incidencia, expected domain.StateCode) (bool, error) {
	return r.inner.UpdateFieldsIf(ctx, incidencia, expected)
}

func (r raceIncidenciaRepo) UpdateStateIf(ctx context.Context, id string, expected, next domain.StateCode, resolvedAt *time.Time) (bool, error) {
	return r.inner.UpdateStateIf(ctx, id, expected, next, resolvedAt)
}

func (r raceIncidenciaRepo) AssignIf(ctx context.Context, id, responsibleID string, expected []domain.StateCode, next domain.StateCode) (bool, error) {
	return r.inner.AssignIf(ctx, id, responsibleID, expected, next)
}

func (r raceIncidenciaRepo) ListWithFilter(ctx context.Context, filter repository.IncidenciaFilter) ([]domain.Incidencia, error) {
	return r.inner.ListWithFilter(ctx, filter)
}

func (r raceIncidenciaRepo) Delete(ctx context.Context, id string) error {
	return r.inner.Delete(ctx, id)
}

func TestUpdateConflictsWithConcurrentStateChange(t *testing.T) {
	svc, fixture := newTestService(false)
	ctx := context.Background()
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	// An admin cancels between the reporter's read and write. The title
	// update must surface the race, not drag the row back to pendiente.
	svcRow := fixture.incidencias.rows[incidencia.ID]
	orig := svc.incidencias
	svc.incidencias = raceIncidenciaRepo{inner: orig, row: svcRow}
	defer func() { svc.incidencias = orig }()

	title := "Projector in room B-12 broken"
	_, err := svc.Update(ctx, studentActor, incidencia.ID, UpdateIncidenciaInput{Title: &title})
	assert.True(t, apperrors.IsConflict(err))

	assert.Equal(t, domain.StateCancelada, svcRow.State, "the concurrent cancellation must stand")
	assert.Equal(t, "Broken projector", svcRow.Title)
	assert.Len(t, fixture.history.forIncidencia(incidencia.ID), 1, "a lost race leaves no field history")
}

func TestUpdateFieldsAndHistory(t *testing.T) {
	svc, fixture := newTestService(false)
	ctx := context.Background()
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	title := "Projector in room B-12 broken"
	category := domain.CategoryCode("tecnologia")
	updated, err := svc.Update(ctx, studentActor, incidencia.ID, UpdateIncidenciaInput{
		Title:    &title,
		Category: &category,
	})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	require.NotNil(t, updated.Category)
	assert.Equal(t, category, *updated.Category)

	entries := fixture.history.forIncidencia(incidencia.ID)
	require.Len(t, entries, 3, "one entry per changed field plus creation")
	assert.Equal(t, domain.ActionTitleUpdated, entries[1].Action)
	assert.Equal(t, "Broken projector", entries[1].OldValue["title"])
	assert.Equal(t, title, entries[1].NewValue["title"])
	assert.Equal(t, domain.ActionCategoryUpdated, entries[2].Action)
}

func TestUpdateNoopRecordsNothing(t *testing.T) {
	svc, fixture := newTestService(false)
	ctx := context.Background()
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	sameTitle := "Broken projector"
	_, err := svc.Update(ctx, studentActor, incidencia.ID, UpdateIncidenciaInput{Title: &sameTitle})
	require.NoError(t, err)
	assert.Len(t, fixture.history.forIncidencia(incidencia.ID), 1)
}

func TestUpdatePriorityRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	urgent := domain.PriorityUrgente
	_, err := svc.Update(ctx, studentActor, incidencia.ID, UpdateIncidenciaInput{Priority: &urgent})
	assert.True(t, apperrors.IsAccessDenied(err))

	updated, err := svc.Update(ctx, adminActor, incidencia.ID, UpdateIncidenciaInput{Priority: &urgent})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityUrgente, updated.Priority)
}

func TestDeleteHistoryRetention(t *testing.T) {
	ctx := context.Background()

	svc, fixture := newTestService(false)
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")
	err := svc.Delete(ctx, studentActor, incidencia.ID)
	assert.True(t, apperrors.IsAccessDenied(err))

	require.NoError(t, svc.Delete(ctx, adminActor, incidencia.ID))
	entries := fixture.history.forIncidencia(incidencia.ID)
	require.Len(t, entries, 2, "history is retained by default")
	assert.Equal(t, domain.ActionDeleted, entries[1].Action)

	svc, fixture = newTestService(true)
	incidencia = mustCreate(t, svc, studentActor, "Broken projector")
	require.NoError(t, svc.Delete(ctx, adminActor, incidencia.ID))
	assert.Empty(t, fixture.history.forIncidencia(incidencia.ID), "cascade removes history with the incidencia")
}

func TestCommentRules(t *testing.T) {
	svc, fixture := newTestService(false)
	ctx := context.Background()
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	_, err := svc.AddComment(ctx, otherActor, incidencia.ID, "me too", false)
	assert.True(t, apperrors.IsNotFound(err), "non-participants must not learn the incidencia exists")

	_, err = svc.AddComment(ctx, studentActor, incidencia.ID, "still broken", true)
	assert.True(t, apperrors.IsAccessDenied(err), "internal comments are admin-only")

	_, err = svc.AddComment(ctx, studentActor, incidencia.ID, "   ", false)
	assert.True(t, apperrors.IsValidationError(err))

	_, err = svc.AddComment(ctx, studentActor, incidencia.ID, "still broken", false)
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, adminActor, incidencia.ID, "vendor contacted", true)
	require.NoError(t, err)

	// The reporter asking for internal comments silently gets public ones.
	visible, err := svc.ListComments(ctx, studentActor, incidencia.ID, true)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "still broken", visible[0].Content)

	visible, err = svc.ListComments(ctx, adminActor, incidencia.ID, true)
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	entries := fixture.history.forIncidencia(incidencia.ID)
	assert.Len(t, entries, 3, "each comment leaves one history entry")
}

func TestAttachments(t *testing.T) {
	svc, fixture := newTestService(false)
	ctx := context.Background()
	incidencia := mustCreate(t, svc, studentActor, "Broken projector")

	_, err := svc.AddAttachment(ctx, studentActor, incidencia.ID, AttachmentInput{FileName: "", StoragePath: "s3://x"})
	assert.True(t, apperrors.IsValidationError(err))

	attachment, err := svc.AddAttachment(ctx, studentActor, incidencia.ID, AttachmentInput{
		FileName:    "photo.jpg",
		StoragePath: "s3://bucket/photo.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", attachment.UploaderID)

	listed, err := svc.ListAttachments(ctx, studentActor, incidencia.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = svc.ListAttachments(ctx, otherActor, incidencia.ID)
	assert.True(t, apperrors.IsNotFound(err))

	entries := fixture.history.forIncidencia(incidencia.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ActionAttachmentAdded, entries[1].Action)
}

func TestListVisibilityScope(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()
	mine := mustCreate(t, svc, studentActor, "Broken projector")
	mustCreate(t, svc, otherActor, "Leaking pipe")

	// A hostile reporter_id filter cannot widen a student's scope.
	foreign := "s2"
	listed, err := svc.List(ctx, studentActor, IncidenciaListInput{ReporterID: &foreign})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, mine.ID, listed[0].ID)

	listed, err = svc.List(ctx, adminActor, IncidenciaListInput{})
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	listed, err = svc.List(ctx, adminActor, IncidenciaListInput{ReporterID: &foreign})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "s2", listed[0].ReporterID)
}

func TestFullLifecycleScenario(t *testing.T) {
	svc, fixture := newTestService(false)
	ctx := context.Background()

	incidencia := mustCreate(t, svc, studentActor, "Broken projector")
	assert.Equal(t, domain.StatePendiente, incidencia.State)

	assigned, err := svc.AssignResponsible(ctx, adminActor, incidencia.ID, "tech1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAsignada, assigned.State)
	require.Len(t, fixture.history.forIncidencia(incidencia.ID), 2)

	// The reporter cannot drive the state machine.
	_, err = svc.ChangeState(ctx, studentActor, incidencia.ID, domain.StateCerrada)
	assert.True(t, apperrors.IsAccessDenied(err))

	inProgress, err := svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateEnProceso)
	require.NoError(t, err)
	assert.Equal(t, domain.StateEnProceso, inProgress.State)

	// Skipping resuelta is rejected.
	_, err = svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateCerrada)
	assert.True(t, apperrors.IsInvalidTransition(err))

	resolved, err := svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateResuelta)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)

	closed, err := svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateCerrada)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCerrada, closed.State)

	// Terminal state: nothing more moves.
	_, err = svc.ChangeState(ctx, adminActor, incidencia.ID, domain.StateCancelada)
	assert.True(t, apperrors.IsInvalidTransition(err))

	entries, err := svc.GetHistory(ctx, studentActor, incidencia.ID)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, domain.ActionCreated, entries[0].Action)
	assert.Equal(t, domain.ActionAssignedResponsible, entries[1].Action)
	for _, entry := range entries[2:] {
		assert.Equal(t, domain.ActionStateChanged, entry.Action)
	}
}
