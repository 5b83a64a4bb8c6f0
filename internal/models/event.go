package models

import "time"

type AnalysisEvent struct {
	ID         string    `json:"id"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	ItemCount  int       `json:"item_count"`
	ItemNames  []string  `json:"item_names"`
	Totals     Totals    `json:"totals"`
}
