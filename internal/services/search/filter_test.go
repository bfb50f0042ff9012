package search

import (
	"testing"

	"github.com/Spower4/ghost-choice-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFilterProducts(t *testing.T) {
	products := []models.Product{
		{ID: "free", Title: "listing without price", Price: 0, Merchant: "Amazon"},
		{ID: "cheap", Title: "budget pick", Price: 50, Merchant: "BestBuy"},
		{ID: "edge", Title: "right at tolerance", Price: 105, Merchant: "Amazon.com"},
		{ID: "over", Title: "too expensive", Price: 106, Merchant: "Amazon"},
		{ID: "uk", Title: "regional storefront", Price: 90, Merchant: "Amazon.co.uk"},
		{ID: "fake", Title: "lookalike merchant", Price: 80, Merchant: "Amazonia"},
	}

	tests := []struct {
		name     string
		settings models.SearchSettings
		wantIDs  []string
	}{
		{
			name:     "budget with 5 percent tolerance",
			settings: models.SearchSettings{Budget: 100},
			wantIDs:  []string{"cheap", "edge", "uk", "fake"},
		},
		{
			name:     "amazon only keeps regional storefronts",
			settings: models.SearchSettings{Budget: 100, AmazonOnly: true},
			wantIDs:  []string{"edge", "uk"},
		},
		{
			name:     "no budget keeps everything priced",
			settings: models.SearchSettings{},
			wantIDs:  []string{"cheap", "edge", "over", "uk", "fake"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterProducts(products, tt.settings)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFilterProductsEmptyInput(t *testing.T) {
	got := FilterProducts(nil, models.SearchSettings{Budget: 100})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestIsAmazon(t *testing.T) {
	assert.True(t, isAmazon("Amazon"))
	assert.True(t, isAmazon("Amazon.com"))
	assert.True(t, isAmazon("Amazon.co.uk"))
	assert.False(t, isAmazon("Amazonia"))
	assert.False(t, isAmazon("amazon"))
	assert.False(t, isAmazon("Walmart"))
}
