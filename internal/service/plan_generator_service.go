package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/printfleet/printfleet-api/internal/dto"
	"github.com/printfleet/printfleet-api/internal/models"
	"github.com/printfleet/printfleet-api/internal/planner"
	appErrors "github.com/printfleet/printfleet-api/pkg/errors"
	"github.com/printfleet/printfleet-api/pkg/export"
)

type printerReader interface {
	List(ctx context.Context) ([]models.Printer, error)
}

type projectReader interface {
	ListForPlanning(ctx context.Context) ([]models.Project, error)
}

type productReader interface {
	ListWithPresets(ctx context.Context) (map[string]models.Product, error)
}

type settingsReader interface {
	Get(ctx context.Context) (*models.FactorySettings, error)
}

type stockReader interface {
	ListStocks(ctx context.Context) ([]models.ColorStock, error)
}

type cycleStore interface {
	ListCommitted(ctx context.Context, from time.Time) ([]models.PlannedCycle, error)
	ListByPlan(ctx context.Context, planID string) ([]models.PlannedCycle, error)
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, planID string, cycles []models.PlannedCycle) error
}

type planStore interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, plan *models.Plan) error
	List(ctx context.Context, status string, page, size int) ([]models.Plan, int, error)
	FindByID(ctx context.Context, id string) (*models.Plan, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.PlanStatus, meta types.JSONText) error
}

type blockLogSink interface {
	Append(ctx context.Context, events []models.BlockEvent) error
	Recent(ctx context.Context, limit int) ([]models.BlockEvent, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type planRunObserver interface {
	ObservePlanRun(result models.PlanningResult, elapsed time.Duration)
}

// PlanGeneratorService builds plan proposals and persists plan versions.
type PlanGeneratorService struct {
	printers  printerReader
	projects  projectReader
	products  productReader
	settings  settingsReader
	stocks    stockReader
	cycles    cycleStore
	plans     planStore
	blockLog  blockLogSink
	tx        txProvider
	observer  planRunObserver
	validator *validator.Validate
	logger    *zap.Logger
	cfg       planner.Config
	now       func() time.Time
	store     *proposalStore
}

// PlanGeneratorConfig governs generator behaviour.
type PlanGeneratorConfig struct {
	ProposalTTL time.Duration
	Planner     planner.Config
}

// NewPlanGeneratorService wires planner dependencies.
func NewPlanGeneratorService(
	printers printerReader,
	projects projectReader,
	products productReader,
	settings settingsReader,
	stocks stockReader,
	cycles cycleStore,
	plans planStore,
	blockLog blockLogSink,
	tx txProvider,
	observer planRunObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg PlanGeneratorConfig,
) *PlanGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	return &PlanGeneratorService{
		printers:  printers,
		projects:  projects,
		products:  products,
		settings:  settings,
		stocks:    stocks,
		cycles:    cycles,
		plans:     plans,
		blockLog:  blockLog,
		tx:        tx,
		observer:  observer,
		validator: validate,
		logger:    logger,
		cfg:       cfg.Planner,
		now:       time.Now,
		store:     newProposalStore(cfg.ProposalTTL),
	}
}

// Generate loads an immutable snapshot, runs one planning pass and caches the
// proposal for a later Save.
func (s *PlanGeneratorService) Generate(ctx context.Context, req dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan generation payload")
	}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	cfg := s.cfg
	if req.HorizonDays > 0 {
		cfg.HorizonDays = req.HorizonDays
	}

	started := time.Now()
	result := planner.New(cfg, s.logger, nil).Plan(snap)
	elapsed := time.Since(started)
	if s.observer != nil {
		s.observer.ObservePlanRun(result, elapsed)
	}

	if s.blockLog != nil && len(result.BlockEvents) > 0 {
		if err := s.blockLog.Append(ctx, result.BlockEvents); err != nil {
			// The diagnostic stream is advisory; a sink failure never fails a run.
			s.logger.Warn("failed to persist block events", zap.Error(err))
		}
	}

	proposal := planProposal{
		ProposalID:  uuid.NewString(),
		Result:      result,
		HorizonDays: cfg.HorizonDays,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)

	resp := &dto.GeneratePlanResponse{
		ProposalID:  proposal.ProposalID,
		Success:     result.Success,
		GeneratedAt: result.GeneratedAt,
		Days:        result.Days,
		Cycles:      result.Cycles,
		Warnings:    result.Warnings,
		Blocking:    result.BlockingIssues,
	}
	if req.IncludeBlockEvents {
		resp.BlockEvents = result.BlockEvents
	}
	return resp, nil
}

// Save persists a cached proposal as a new plan version, optionally publishing
// it, in one transaction.
func (s *PlanGeneratorService) Save(ctx context.Context, req dto.SavePlanRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save plan payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if !req.Force && len(proposal.Result.BlockingIssues) > 0 {
		return "", appErrors.Clone(appErrors.ErrConflict, "proposal has blocking issues; set force to save anyway")
	}
	if s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	metaPayload := map[string]any{
		"success":        proposal.Result.Success,
		"horizonDays":    proposal.HorizonDays,
		"cycleCount":     len(proposal.Result.Cycles),
		"warnings":       proposal.Result.Warnings,
		"blockingIssues": proposal.Result.BlockingIssues,
	}
	metaBytes, marshalErr := json.Marshal(metaPayload)
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode plan metadata")
		return "", err
	}

	record := &models.Plan{
		Status:      models.PlanStatusDraft,
		Meta:        types.JSONText(metaBytes),
		GeneratedAt: proposal.Result.GeneratedAt,
	}
	if err = s.plans.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create plan version")
		return "", err
	}
	if err = s.cycles.BulkCreateWithTx(ctx, tx, record.ID, proposal.Result.Cycles); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist planned cycles")
		return "", err
	}
	if req.Publish {
		if err = s.plans.UpdateStatus(ctx, tx, record.ID, models.PlanStatusPublished, nil); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish plan")
			return "", err
		}
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit plan transaction")
		return "", err
	}

	s.store.Delete(req.ProposalID)
	return record.ID, nil
}

// List returns stored plan versions.
func (s *PlanGeneratorService) List(ctx context.Context, query dto.PlanQuery) ([]models.Plan, *models.Pagination, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	plans, total, err := s.plans.List(ctx, query.Status, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list plans")
	}
	pagination := &models.Pagination{
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: (total + size - 1) / size,
	}
	return plans, pagination, nil
}

// Get returns a stored plan with its cycles.
func (s *PlanGeneratorService) Get(ctx context.Context, planID string) (*dto.PlanDetailResponse, error) {
	if planID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "plan id is required")
	}
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	cycles, err := s.cycles.ListByPlan(ctx, planID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list plan cycles")
	}
	return &dto.PlanDetailResponse{Plan: *plan, Cycles: cycles}, nil
}

// Delete removes a draft plan version. Published plans are immutable history.
func (s *PlanGeneratorService) Delete(ctx context.Context, planID string) error {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	if plan.Status != models.PlanStatusDraft {
		return appErrors.Clone(appErrors.ErrPublished, "published plans cannot be deleted")
	}
	if err := s.plans.Delete(ctx, planID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete plan")
	}
	return nil
}

// RecentBlockEvents returns the newest diagnostic events from the stream.
func (s *PlanGeneratorService) RecentBlockEvents(ctx context.Context, limit int) ([]models.BlockEvent, error) {
	if s.blockLog == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "block log unavailable")
	}
	events, err := s.blockLog.Recent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read block log")
	}
	return events, nil
}

// Export renders a stored plan's cycle table as CSV or PDF bytes.
func (s *PlanGeneratorService) Export(ctx context.Context, planID, format string) ([]byte, string, string, error) {
	detail, err := s.Get(ctx, planID)
	if err != nil {
		return nil, "", "", err
	}

	dataset := cycleDataset(detail.Cycles)
	title := fmt.Sprintf("Production plan v%d", detail.Plan.Version)
	footer := fmt.Sprintf("Generated %s", detail.Plan.GeneratedAt.Format("2006-01-02 15:04 MST"))

	switch format {
	case "csv", "":
		data, renderErr := export.NewCSVExporter().Render(dataset)
		if renderErr != nil {
			return nil, "", "", appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return data, "text/csv", fmt.Sprintf("plan-v%d.csv", detail.Plan.Version), nil
	case "pdf":
		data, renderErr := export.NewPDFExporter().Render(dataset, title, footer)
		if renderErr != nil {
			return nil, "", "", appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return data, "application/pdf", fmt.Sprintf("plan-v%d.pdf", detail.Plan.Version), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func cycleDataset(cycles []models.PlannedCycle) export.Dataset {
	headers := []string{"Start", "End", "Printer", "Project", "Preset", "Units", "Grams", "Color", "Plate", "Shift", "Readiness"}
	rows := make([]map[string]string, 0, len(cycles))
	for _, cycle := range cycles {
		rows = append(rows, map[string]string{
			"Start":     cycle.StartTime.Format("2006-01-02 15:04"),
			"End":       cycle.EndTime.Format("2006-01-02 15:04"),
			"Printer":   cycle.PrinterID,
			"Project":   cycle.ProjectID,
			"Preset":    cycle.PresetID,
			"Units":     fmt.Sprintf("%d", cycle.UnitsPlanned),
			"Grams":     fmt.Sprintf("%.0f", cycle.GramsPlanned),
			"Color":     cycle.RequiredColor,
			"Plate":     string(cycle.PlateType),
			"Shift":     string(cycle.Shift),
			"Readiness": string(cycle.Readiness),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// loadSnapshot reads every planner input exactly once. Missing settings are a
// planning outcome, not a load error.
func (s *PlanGeneratorService) loadSnapshot(ctx context.Context) (planner.Snapshot, error) {
	now := s.now().UTC()
	snap := planner.Snapshot{Now: now}

	settings, err := s.settings.Get(ctx)
	switch {
	case err == nil:
		snap.Settings = *settings
	case errors.Is(err, sql.ErrNoRows):
		// Leave settings empty; the planner reports the blocking issue.
	default:
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load factory settings")
	}

	if snap.Printers, err = s.printers.List(ctx); err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load printers")
	}
	if snap.Projects, err = s.projects.ListForPlanning(ctx); err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load projects")
	}
	if snap.Products, err = s.products.ListWithPresets(ctx); err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load products")
	}
	if snap.Stocks, err = s.stocks.ListStocks(ctx); err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load color stocks")
	}
	if snap.Committed, err = s.cycles.ListCommitted(ctx, now); err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load committed cycles")
	}
	return snap, nil
}

// --- Proposal cache ---

type planProposal struct {
	ProposalID  string
	Result      models.PlanningResult
	HorizonDays int
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]planProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]planProposal),
	}
}

func (s *proposalStore) Save(proposal planProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (planProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return planProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return planProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
