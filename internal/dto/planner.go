package dto

import (
	"time"

	"github.com/printfleet/printfleet-api/internal/models"
)

// GeneratePlanRequest instructs the planner to build a plan proposal.
type GeneratePlanRequest struct {
	HorizonDays        int  `json:"horizonDays" validate:"omitempty,min=1,max=30"`
	IncludeBlockEvents bool `json:"includeBlockEvents"`
}

// GeneratePlanResponse returns the built proposal for preview.
type GeneratePlanResponse struct {
	ProposalID  string                   `json:"proposalId"`
	Success     bool                     `json:"success"`
	GeneratedAt time.Time                `json:"generatedAt"`
	Days        []models.DayPlan         `json:"days"`
	Cycles      []models.PlannedCycle    `json:"cycles"`
	Warnings    []models.PlanningWarning `json:"warnings"`
	Blocking    []models.BlockingIssue   `json:"blockingIssues"`
	BlockEvents []models.BlockEvent      `json:"blockEvents,omitempty"`
}

// SavePlanRequest persists a cached proposal as a plan version.
type SavePlanRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Publish    bool   `json:"publish"`
	Force      bool   `json:"force"`
}

// PlanQuery filters the stored plan listing.
type PlanQuery struct {
	Status   string `form:"status" json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
	Page     int    `form:"page" json:"page"`
	PageSize int    `form:"pageSize" json:"pageSize"`
}

// PlanDetailResponse bundles a stored plan with its cycles.
type PlanDetailResponse struct {
	Plan   models.Plan           `json:"plan"`
	Cycles []models.PlannedCycle `json:"cycles"`
}

// BlockLogQuery limits how many diagnostic events are returned.
type BlockLogQuery struct {
	Limit int `form:"limit" json:"limit" validate:"omitempty,min=1,max=500"`
}
