package cart

// MergeResult describes what a merge-on-login did. Merged is false when no
// session cart existed.
type MergeResult struct {
	Merged bool   `json:"merged"`
	CartID string `json:"cartId,omitempty"`
	Moved  int    `json:"moved"`
	Summed int    `json:"summed"`
}

// MergeItems folds from into into. Products missing from into are moved over,
// products present in both have their quantities summed. The order of into is
// kept and moved items are appended in the order they appear in from.
func MergeItems(into, from []Item) (merged []Item, moved, summed int) {
	merged = make([]Item, len(into), len(into)+len(from))
	copy(merged, into)

	idx := make(map[string]int, len(merged))
	for i, it := range merged {
		idx[it.ProductID] = i
	}

	for _, it := range from {
		if it.Quantity <= 0 {
			continue
		}
		if i, ok := idx[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			summed++
			continue
		}
		idx[it.ProductID] = len(merged)
		merged = append(merged, it)
		moved++
	}
	return merged, moved, summed
}
