package models

// Item is one recognised food on the plate.
type Item struct {
	Name     string  `json:"name"`
	MassG    float64 `json:"mass_g"`
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbG    float64 `json:"carb_g"`
}

type Totals struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbG    float64 `json:"carb_g"`
}

// AnalysisResult is the canonical shape every upstream response maps to.
// Items is never nil once normalized; Totals is always present.
type AnalysisResult struct {
	Items  []Item `json:"items"`
	Totals Totals `json:"totals"`
}

func EmptyResult() AnalysisResult {
	return AnalysisResult{Items: []Item{}}
}

func (r AnalysisResult) HasItems() bool {
	return len(r.Items) > 0
}
