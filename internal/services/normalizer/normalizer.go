// Package normalizer maps the loosely shaped upstream analysis responses onto
// models.AnalysisResult. Normalization is total: every input yields a
// well-formed result.
package normalizer

import (
	"bytes"
	"encoding/json"

	"github.com/phambaophuc/meal-analyzer/internal/models"
)

// PlaceholderName labels items the upstream returned without a usable name.
const PlaceholderName = "product"

// Normalize converts a decoded JSON value (as produced by encoding/json into
// any) into the canonical result.
func Normalize(raw any) models.AnalysisResult {
	body := resolve(raw)
	if body == nil {
		return models.EmptyResult()
	}

	return models.AnalysisResult{
		Items:  normalizeItems(body["items"]),
		Totals: normalizeTotals(body["totals"]),
	}
}

// NormalizeJSON decodes data and normalizes it; undecodable input is empty.
func NormalizeJSON(data []byte) models.AnalysisResult {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return models.EmptyResult()
	}
	return Normalize(raw)
}

func normalizeItems(v any) []models.Item {
	list, ok := v.([]any)
	if !ok {
		return []models.Item{}
	}

	items := make([]models.Item, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, models.Item{
			Name:     toName(obj["name"]),
			MassG:    toFloat(obj["mass_g"]),
			Kcal:     toFloat(obj["kcal"]),
			ProteinG: toFloat(obj["protein_g"]),
			FatG:     toFloat(obj["fat_g"]),
			CarbG:    toFloat(obj["carb_g"]),
		})
	}
	return items
}

func normalizeTotals(v any) models.Totals {
	obj, ok := v.(map[string]any)
	if !ok {
		return models.Totals{}
	}
	return models.Totals{
		Kcal:     toFloat(obj["kcal"]),
		ProteinG: toFloat(obj["protein_g"]),
		FatG:     toFloat(obj["fat_g"]),
		CarbG:    toFloat(obj["carb_g"]),
	}
}
