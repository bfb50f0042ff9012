package plan

import (
	"strings"

	"github.com/Spower4/ghost-choice-backend/internal/models"
)

// setupSplits maps setup keywords to their category budget shares. Shares
// sum to 1.0 per entry.
var setupSplits = map[string][]categoryShare{
	"gaming": {
		{"Monitor", "gaming monitor", 0.30},
		{"Keyboard", "mechanical gaming keyboard", 0.15},
		{"Mouse", "gaming mouse", 0.10},
		{"Headset", "gaming headset", 0.15},
		{"Chair", "gaming chair", 0.30},
	},
	"office": {
		{"Desk", "office desk", 0.35},
		{"Chair", "ergonomic office chair", 0.35},
		{"Monitor", "office monitor", 0.20},
		{"Lighting", "desk lamp", 0.10},
	},
	"streaming": {
		{"Microphone", "usb streaming microphone", 0.30},
		{"Camera", "streaming webcam", 0.30},
		{"Lighting", "ring light", 0.20},
		{"Audio", "audio interface", 0.20},
	},
	"studio": {
		{"Audio Interface", "usb audio interface", 0.30},
		{"Microphone", "condenser microphone", 0.30},
		{"Monitors", "studio monitor speakers", 0.25},
		{"Acoustics", "acoustic panels", 0.15},
	},
	"bedroom": {
		{"Bed", "bed frame", 0.40},
		{"Mattress", "mattress", 0.35},
		{"Lighting", "bedside lamp", 0.10},
		{"Storage", "dresser", 0.15},
	},
}

type categoryShare struct {
	name  string
	query string
	share float64
}

// setupMarkers flag a multi-item intent even without a known room keyword
var setupMarkers = []string{"setup", "battlestation", "workstation", "rig"}

// HeuristicPlan is the deterministic planner: keyword lookup for known
// setup kinds, otherwise a single-item plan with the full budget.
func HeuristicPlan(req models.PlanRequest) *models.BuildPlan {
	lowered := strings.ToLower(req.Query)

	for keyword, shares := range setupSplits {
		if !strings.Contains(lowered, keyword) {
			continue
		}
		if keyword != "gaming" || isSetupIntent(lowered) {
			return splitPlan(keyword, shares, req)
		}
	}

	if isSetupIntent(lowered) {
		// Generic setup with no recognized room: fall back to office shares
		// under the queried name.
		return splitPlan("setup", setupSplits["office"], req)
	}

	return &models.BuildPlan{
		IsSetup:  false,
		Strategy: "single",
		Categories: []models.PlannedCategory{{
			Name:       "Item",
			Query:      strings.TrimSpace(req.Query + " " + req.Style),
			Amount:     req.Budget,
			Percentage: 100,
		}},
	}
}

func isSetupIntent(lowered string) bool {
	for _, marker := range setupMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func splitPlan(strategy string, shares []categoryShare, req models.PlanRequest) *models.BuildPlan {
	categories := make([]models.PlannedCategory, 0, len(shares))
	for _, s := range shares {
		query := s.query
		if req.Style != "" {
			query = query + " " + strings.ToLower(req.Style)
		}
		categories = append(categories, models.PlannedCategory{
			Name:       s.name,
			Query:      query,
			Amount:     req.Budget * s.share,
			Percentage: s.share * 100,
		})
	}

	return &models.BuildPlan{
		IsSetup:    true,
		Strategy:   strategy,
		Categories: categories,
	}
}
