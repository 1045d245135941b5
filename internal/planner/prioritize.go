package planner

import (
	"math"
	"sort"
	"time"

	"github.com/printfleet/printfleet-api/internal/models"
)

// Urgency clamps: a critical project is never ranked further out than 5 days,
// an urgent one never further than 15, regardless of its real due date.
const (
	criticalPriorityCap = 5
	urgentPriorityCap   = 15
)

// projectRun is a project's mutable working state for one planning run.
type projectRun struct {
	project      models.Project
	product      *models.Product
	remaining    int
	daysUntilDue float64
	priority     float64
}

// prioritizeProjects resolves each project to a product, computes remaining
// units net of in-progress work and of cycles already generated this run, and
// orders the working set by (priority asc, daysUntilDue asc). That ordering is
// the sole priority contract: ties are broken only by due date (then project
// id for full determinism), never by insertion order.
func prioritizeProjects(
	asOf time.Time,
	projects []models.Project,
	products map[string]models.Product,
	committed []models.PlannedCycle,
	generated []models.PlannedCycle,
) []*projectRun {
	inProgress := make(map[string]int)
	for _, cycle := range committed {
		if cycle.Status == models.CycleStatusInProgress || cycle.Status == models.CycleStatusLocked {
			inProgress[cycle.ProjectID] += cycle.UnitsPlanned
		}
	}
	planned := make(map[string]int)
	for _, cycle := range generated {
		planned[cycle.ProjectID] += cycle.UnitsPlanned
	}

	var defaultProduct *models.Product
	for id := range products {
		if products[id].IsDefault {
			p := products[id]
			defaultProduct = &p
			break
		}
	}

	runs := make([]*projectRun, 0, len(projects))
	for _, project := range projects {
		if !project.IncludeInPlanning {
			continue
		}
		product := resolveProduct(project, products, defaultProduct)
		if product == nil || len(product.Presets) == 0 {
			// Unresolvable projects are skipped, not errored.
			continue
		}
		remaining := project.QuantityTarget - project.QuantityGood - inProgress[project.ID] - planned[project.ID]
		if remaining <= 0 {
			continue
		}

		daysUntilDue := project.DueDate.Sub(asOf).Hours() / 24
		priority := daysUntilDue
		switch project.Urgency {
		case models.UrgencyCritical:
			priority = math.Min(priority, criticalPriorityCap)
		case models.UrgencyUrgent:
			priority = math.Min(priority, urgentPriorityCap)
		}

		runs = append(runs, &projectRun{
			project:      project,
			product:      product,
			remaining:    remaining,
			daysUntilDue: daysUntilDue,
			priority:     priority,
		})
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].priority != runs[j].priority {
			return runs[i].priority < runs[j].priority
		}
		if runs[i].daysUntilDue != runs[j].daysUntilDue {
			return runs[i].daysUntilDue < runs[j].daysUntilDue
		}
		return runs[i].project.ID < runs[j].project.ID
	})
	return runs
}

func resolveProduct(project models.Project, products map[string]models.Product, fallback *models.Product) *models.Product {
	if product, ok := products[project.ProductID]; ok {
		return &product
	}
	// Migrated data may reference a product that no longer exists; fall back
	// to the default product rather than dropping the project.
	return fallback
}
