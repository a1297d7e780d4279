package domain

import (
	"encoding/json"
)

// Hit is a single match returned by a search backend.
type Hit struct {
	ID     string   `json:"_id"`
	Score  float64  `json:"_score"`
	Source Document `json:"_source"`
}

// Result is the backend's native search response, normalized just enough to
// be backend-agnostic: an ordered hit list plus the raw total, which older
// backends report as a bare integer and newer ones as {"value": N}.
type Result struct {
	Took     int64           `json:"took"`
	TotalRaw json.RawMessage `json:"total"`
	Hits     []Hit           `json:"hits"`

	// Pages is total hits divided by page size, set only by Paginate. It is
	// deliberately a float: rounding (ceiling vs. truncation) is the
	// caller's decision, not hidden here.
	Pages float64 `json:"pages,omitempty"`
}

// Total normalizes the total-hit count across both historical response
// shapes. Missing or unrecognized totals count as zero.
func (r *Result) Total() int {
	if r == nil || len(r.TotalRaw) == 0 {
		return 0
	}

	var scalar int
	if err := json.Unmarshal(r.TotalRaw, &scalar); err == nil {
		return scalar
	}

	var nested struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(r.TotalRaw, &nested); err == nil {
		return nested.Value
	}

	return 0
}

// IDs returns the hit keys in result order.
func (r *Result) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

// RawTotal builds the TotalRaw payload for a scalar total. Engines that
// produce results locally (the in-memory engine, tests) use it to stay
// shape-compatible with remote responses.
func RawTotal(n int) json.RawMessage {
	data, _ := json.Marshal(n)
	return data
}
