// Package rank scores and orders product candidates with weighted criteria:
// price, rating, review count, and query relevance.
package rank

import (
	"math"
	"sort"
	"strings"

	"github.com/Spower4/ghost-choice-backend/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// reviewSaturation is where the log-scaled review score tops out; beyond
// a few thousand reviews more volume says nothing new.
const reviewSaturation = 5000.0

// Service ranks products
type Service struct{}

// NewService creates a rank service
func NewService() *Service {
	return &Service{}
}

// Rank scores the products against the query and returns them ordered by
// descending score. All-zero weights are replaced by the default even
// split; ties keep the input order.
func (s *Service) Rank(query string, products []models.Product, weights *models.RankWeights, requestID string) ([]models.Product, models.RankWeights) {
	resolved := models.DefaultRankWeights()
	if weights != nil && !weights.IsZero() {
		resolved = *weights
	} else if weights != nil {
		fiberlog.Debugf("[%s] Rank: all-zero weights supplied, using defaults", requestID)
	}

	if len(products) == 0 {
		return []models.Product{}, resolved
	}

	maxPrice := 0.0
	for _, p := range products {
		if p.Price > maxPrice {
			maxPrice = p.Price
		}
	}

	queryTokens := tokenize(query)

	ranked := make([]models.Product, len(products))
	copy(ranked, products)

	for i := range ranked {
		ranked[i].Score = score(ranked[i], resolved, maxPrice, queryTokens)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked, resolved
}

// score combines the four criteria, each normalized to [0, 1]
func score(p models.Product, w models.RankWeights, maxPrice float64, queryTokens []string) float64 {
	priceScore := 0.0
	if maxPrice > 0 {
		priceScore = 1 - p.Price/maxPrice
	}

	ratingScore := p.Rating / 5.0
	if ratingScore > 1 {
		ratingScore = 1
	}

	reviewScore := 0.0
	if p.ReviewCount > 0 {
		reviewScore = math.Log1p(float64(p.ReviewCount)) / math.Log1p(reviewSaturation)
		if reviewScore > 1 {
			reviewScore = 1
		}
	}

	relevanceScore := relevance(queryTokens, p.Title)

	total := w.Price*priceScore + w.Rating*ratingScore + w.Reviews*reviewScore + w.Relevance*relevanceScore

	weightSum := w.Price + w.Rating + w.Reviews + w.Relevance
	if weightSum > 0 {
		total /= weightSum
	}
	return total
}

// relevance is the fraction of query tokens present in the title
func relevance(queryTokens []string, title string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	titleTokens := tokenize(title)
	titleSet := make(map[string]struct{}, len(titleTokens))
	for _, t := range titleTokens {
		titleSet[t] = struct{}{}
	}

	matched := 0
	for _, t := range queryTokens {
		if _, ok := titleSet[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()[]\"'")
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
