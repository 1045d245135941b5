package planner

import (
	"time"

	"github.com/printfleet/printfleet-api/internal/models"
)

// Preset scoring weights. The pre-weekend bonus is deliberately larger than
// every other term combined so the longest surviving preset always wins on
// Thursday afternoons.
const (
	presetUnitsWeight       = 40.0
	presetSpeedWeight       = 20.0
	presetRiskLowBonus      = 20.0
	presetRiskMediumBonus   = 10.0
	presetRecommendedBonus  = 20.0
	presetWastePenaltyPer   = 3.0
	presetTightSpeedPenalty = 10.0
	presetNightLowBonus     = 10.0
	presetNightMediumBonus  = 5.0
	preWeekendBonusScale    = 1000.0
)

// presetContext carries the slot-local facts preset selection depends on.
type presetContext struct {
	remainingUnits   int
	availableHours   float64
	availableGrams   float64
	night            bool
	preWeekend       bool
	preferredID      *string
	customCycleHours *float64
}

// effectiveCycleHours applies a project's custom cycle-hours override.
func effectiveCycleHours(preset models.PlatePreset, custom *float64) float64 {
	if custom != nil && *custom > 0 {
		return *custom
	}
	return preset.CycleHours
}

// selectPreset picks the best plate preset for the context. A valid
// user-preferred preset wins outright. Otherwise presets that cannot run at
// night, do not fit the remaining time, or exceed available material are
// filtered out and the survivors scored; when nothing survives the
// recommended (or first) preset is returned as a degraded-but-non-blocking
// choice. The returned bool is true for that degraded fallback.
func selectPreset(product *models.Product, ctx presetContext) (*models.PlatePreset, bool) {
	if product == nil || len(product.Presets) == 0 {
		return nil, false
	}

	if ctx.preferredID != nil {
		if preferred := product.PresetByID(*ctx.preferredID); preferred != nil {
			return preferred, false
		}
	}

	var survivors []models.PlatePreset
	for _, preset := range product.Presets {
		if ctx.night && !preset.AllowedForNightCycle {
			continue
		}
		hours := effectiveCycleHours(preset, ctx.customCycleHours)
		if ctx.availableHours > 0 && hours > ctx.availableHours {
			continue
		}
		units := preset.UnitsPerPlate
		if ctx.remainingUnits > 0 && ctx.remainingUnits < units {
			units = ctx.remainingUnits
		}
		if float64(units)*preset.GramsPerUnit > ctx.availableGrams && ctx.availableGrams > 0 {
			continue
		}
		survivors = append(survivors, preset)
	}

	if len(survivors) == 0 {
		return product.RecommendedPreset(), true
	}
	if len(survivors) == 1 {
		return &survivors[0], false
	}

	maxUnits, maxHours := 0, 0.0
	for _, preset := range survivors {
		if preset.UnitsPerPlate > maxUnits {
			maxUnits = preset.UnitsPerPlate
		}
		if hours := effectiveCycleHours(preset, ctx.customCycleHours); hours > maxHours {
			maxHours = hours
		}
	}

	best := 0
	bestScore := scorePreset(survivors[0], ctx, maxUnits, maxHours)
	for i := 1; i < len(survivors); i++ {
		// Strictly-greater keeps ties resolved by filter order.
		if score := scorePreset(survivors[i], ctx, maxUnits, maxHours); score > bestScore {
			best, bestScore = i, score
		}
	}
	return &survivors[best], false
}

func scorePreset(preset models.PlatePreset, ctx presetContext, maxUnits int, maxHours float64) float64 {
	hours := effectiveCycleHours(preset, ctx.customCycleHours)

	score := presetUnitsWeight * float64(preset.UnitsPerPlate) / float64(maxUnits)
	if maxHours > 0 {
		score += presetSpeedWeight * (1 - hours/maxHours)
	}

	switch preset.RiskLevel {
	case models.RiskLow:
		score += presetRiskLowBonus
	case models.RiskMedium:
		score += presetRiskMediumBonus
	}
	if preset.IsRecommended {
		score += presetRecommendedBonus
	}

	if ctx.remainingUnits > 0 && ctx.remainingUnits <= preset.UnitsPerPlate {
		score -= presetWastePenaltyPer * float64(preset.UnitsPerPlate-ctx.remainingUnits)
	}
	if ctx.availableHours > 0 && hours > ctx.availableHours*0.75 {
		score -= presetTightSpeedPenalty
	}
	if ctx.night {
		switch preset.RiskLevel {
		case models.RiskLow:
			score += presetNightLowBonus
		case models.RiskMedium:
			score += presetNightMediumBonus
		}
	}
	if ctx.preWeekend && maxHours > 0 {
		score += preWeekendBonusScale * hours / maxHours
	}
	return score
}

// isPreWeekendSlot reports whether t falls on a Thursday afternoon, the
// window where the selector pushes the longest cycle onto the plate so work
// carries into the weekend.
func isPreWeekendSlot(t time.Time) bool {
	return t.Weekday() == time.Thursday && t.Hour() >= 12
}
