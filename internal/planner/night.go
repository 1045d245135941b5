package planner

import "github.com/printfleet/printfleet-api/internal/models"

// canStartAtNight is the three-level after-hours gate. All three must agree:
// the factory runs FULL_AUTOMATION, the printer may start cycles unattended,
// and the preset is not explicitly barred from night runs.
func canStartAtNight(settings models.FactorySettings, printer models.Printer, preset models.PlatePreset) bool {
	if settings.AfterHours != models.AfterHoursFullAutomation {
		return false
	}
	if !printer.CanStartAfterHours {
		return false
	}
	return preset.AllowedForNightCycle
}

// nightColorVerdict is the outcome of the non-AMS night color-lock check.
type nightColorVerdict int

const (
	// nightColorOK: the printer can run this color at night.
	nightColorOK nightColorVerdict = iota
	// nightColorUnknown: no physical color signal, so the printer must sit
	// out the whole remaining night window, not be retried per project.
	nightColorUnknown
	// nightColorMismatch: a different color is mounted, so only this project
	// is skipped; the printer stays available for matching colors.
	nightColorMismatch
)

// checkNightColor applies the non-AMS color lock for a night start. AMS
// printers switch material unattended and always pass.
func checkNightColor(printer models.Printer, lockedColor, wantColor string) nightColorVerdict {
	if printer.HasAMS {
		return nightColorOK
	}
	if lockedColor == "" {
		return nightColorUnknown
	}
	if lockedColor != wantColor {
		return nightColorMismatch
	}
	return nightColorOK
}
