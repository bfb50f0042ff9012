package search

import "github.com/Spower4/ghost-choice-backend/internal/models"

// budgetTolerance lets a product squeak 5% over the stated budget; hard
// cutoffs at round numbers throw away the best candidates.
const budgetTolerance = 1.05

const amazonMerchant = "Amazon"

// FilterProducts applies the settings filters: budget tolerance, merchant
// restriction, and a sanity floor on price.
func FilterProducts(products []models.Product, settings models.SearchSettings) []models.Product {
	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Price <= 0 {
			continue
		}
		if settings.Budget > 0 && p.Price > settings.Budget*budgetTolerance {
			continue
		}
		if settings.AmazonOnly && !isAmazon(p.Merchant) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

func isAmazon(merchant string) bool {
	if merchant == amazonMerchant {
		return true
	}
	// SerpAPI reports regional storefronts as "Amazon.com", "Amazon.co.uk" etc.
	return len(merchant) > len(amazonMerchant) && merchant[:len(amazonMerchant)+1] == amazonMerchant+"."
}
