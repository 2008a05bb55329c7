package facet

import "github.com/ppetrov/opinia/internal/model"

// Index derives the distinct values of one facet over the enriched set with
// their total occurrence counts. Order is first-seen in input order, never
// sorted; ties are left alone. Counts are totals over the full set, not the
// currently filtered subset, so facet menus answer "how many overall".
// Recompute only when the enriched set changes, not on selection changes.
func Index(enriched []model.EnrichedRecord, f Facet) []model.FacetValue {
	var values []model.FacetValue
	position := make(map[string]int)

	for _, r := range enriched {
		v := valueOf(r, f)
		if i, seen := position[v]; seen {
			values[i].Count++
			continue
		}
		position[v] = len(values)
		values = append(values, model.FacetValue{Value: v, Count: 1})
	}

	return values
}

// ValueList flattens an index into just the value names, preserving order.
// Useful as the allValues argument to Engine.SelectAll and Engine.Summarize.
func ValueList(values []model.FacetValue) []string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = v.Value
	}
	return names
}
