package models

// Universe is the current set of tickers the plane keeps fresh.
// Hot tickers belong to running executions and refresh on a tight
// cadence; warm tickers are configured but idle. Both sets are
// replaced wholesale on every refresh cycle.
type Universe struct {
	Hot  []string `json:"hot"`
	Warm []string `json:"warm"`
}

// All returns hot and warm merged, hot first, without duplicates.
func (u *Universe) All() []string {
	seen := make(map[string]struct{}, len(u.Hot)+len(u.Warm))
	out := make([]string, 0, len(u.Hot)+len(u.Warm))
	for _, s := range u.Hot {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range u.Warm {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// Total is the size of the merged universe.
func (u *Universe) Total() int { return len(u.All()) }

// IsHot reports whether symbol belongs to a running execution.
func (u *Universe) IsHot(symbol string) bool {
	for _, s := range u.Hot {
		if s == symbol {
			return true
		}
	}
	return false
}

// Contains reports whether symbol is in either set.
func (u *Universe) Contains(symbol string) bool {
	for _, s := range u.Hot {
		if s == symbol {
			return true
		}
	}
	for _, s := range u.Warm {
		if s == symbol {
			return true
		}
	}
	return false
}
