package domain

import "time"

// ReferencePriceSourceUnknown tags a resolution where every source failed.
// Consumers must treat such results as "do not evaluate this cycle".
const ReferencePriceSourceUnknown = "unknown"

// ReferencePrice is the resolved price-to-beat for an asset's current hour.
type ReferencePrice struct {
	Asset      string    `json:"asset"`
	Value      float64   `json:"value"`
	Source     string    `json:"source"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Known reports whether the resolution produced a usable value.
func (r ReferencePrice) Known() bool {
	return r.Value > 0 && r.Source != ReferencePriceSourceUnknown
}
