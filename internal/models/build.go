package models

// RankWeights are the ranking criteria weights. An all-zero set is treated
// as unset and replaced by DefaultRankWeights.
type RankWeights struct {
	Price     float64 `json:"price"`
	Rating    float64 `json:"rating"`
	Reviews   float64 `json:"reviews"`
	Relevance float64 `json:"relevance"`
}

// IsZero reports whether all four weights are zero
func (w RankWeights) IsZero() bool {
	return w.Price == 0 && w.Rating == 0 && w.Reviews == 0 && w.Relevance == 0
}

// DefaultRankWeights returns the even 0.25 split used when the caller
// supplies no weights.
func DefaultRankWeights() RankWeights {
	return RankWeights{Price: 0.25, Rating: 0.25, Reviews: 0.25, Relevance: 0.25}
}

// SearchSettings are the user-facing knobs for a build or search request
type SearchSettings struct {
	Style       string       `json:"style,omitempty"`
	Budget      float64      `json:"budget"`
	Currency    string       `json:"currency,omitempty"`
	Region      string       `json:"region,omitempty"`
	AmazonOnly  bool         `json:"amazonOnly,omitempty"`
	ResultCount int          `json:"resultCount,omitempty"`
	Weights     *RankWeights `json:"weights,omitempty"`
}

// BuildRequest is the body of POST /v1/build
type BuildRequest struct {
	Query    string         `json:"query"`
	Settings SearchSettings `json:"settings"`
}

// BuildResponse is the assembled envelope returned by the orchestrator
type BuildResponse struct {
	Products       []Product            `json:"products"`
	BudgetChart    []BudgetDistribution `json:"budgetChart,omitempty"`
	GhostTips      []string             `json:"ghostTips"`
	SearchMetadata SearchMetadata       `json:"searchMetadata"`
	IsSetup        bool                 `json:"isSetup"`
}

// PlannedCategory is one category of a multi-item plan with its budget share
type PlannedCategory struct {
	Name       string  `json:"name"`
	Query      string  `json:"query"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// BuildPlan is the planner's verdict: single item or a multi-item setup
// with a budget split across categories.
type BuildPlan struct {
	IsSetup    bool              `json:"isSetup"`
	Strategy   string            `json:"strategy,omitempty"`
	Categories []PlannedCategory `json:"categories"`
}

// PlanRequest is the body of POST /v1/plan
type PlanRequest struct {
	Query    string  `json:"query"`
	Budget   float64 `json:"budget"`
	Currency string  `json:"currency,omitempty"`
	Style    string  `json:"style,omitempty"`
}

// SearchRequest is the body of POST /v1/search
type SearchRequest struct {
	Query    string         `json:"query"`
	Settings SearchSettings `json:"settings"`
}

// SearchResponse wraps a direct provider search
type SearchResponse struct {
	Products       []Product      `json:"products"`
	SearchMetadata SearchMetadata `json:"searchMetadata"`
}

// RankRequest is the body of POST /v1/rank
type RankRequest struct {
	Query    string       `json:"query"`
	Products []Product    `json:"products"`
	Weights  *RankWeights `json:"weights,omitempty"`
}

// RankResponse carries the ranked products with their scores
type RankResponse struct {
	Products []Product   `json:"products"`
	Weights  RankWeights `json:"weights"`
}

// SwapRequest asks for replacement candidates for one product in a setup
type SwapRequest struct {
	Query    string         `json:"query"`
	Product  Product        `json:"product"`
	Settings SearchSettings `json:"settings"`
	Exclude  []string       `json:"exclude,omitempty"`
}

// SwapResponse carries replacement candidates for a swapped-out product
type SwapResponse struct {
	Products       []Product      `json:"products"`
	SearchMetadata SearchMetadata `json:"searchMetadata"`
}

// SceneRequest is the body of POST /v1/ai-scene
type SceneRequest struct {
	Products []Product `json:"products"`
	Style    string    `json:"style,omitempty"`
	RoomType string    `json:"roomType,omitempty"`
}

// SceneResponse carries the generated scene image
type SceneResponse struct {
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
	Model       string `json:"model"`
}

// ShareSetupRequest is the body of POST /v1/setups
type ShareSetupRequest struct {
	Setup Setup `json:"setup"`
}

// ShareSetupResponse returns the share id for a saved setup
type ShareSetupResponse struct {
	ID string `json:"id"`
}
