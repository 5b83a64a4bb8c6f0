package models

// DailyStats accumulates the totals of every analysed meal of one day.
type DailyStats struct {
	Date     string  `json:"date"`
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbG    float64 `json:"carb_g"`
	Count    int64   `json:"count"`
}
