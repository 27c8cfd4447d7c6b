// Package dedupe collapses business records that share an identity key.
package dedupe

import "mapleads/internal/model"

// Records drops every record whose exact title|address pair was already
// seen, keeping the first occurrence and preserving order. The key is
// deliberately strict: records with differently formatted addresses are
// treated as distinct businesses.
func Records(in []model.BusinessRecord) []model.BusinessRecord {
	seen := make(map[string]struct{}, len(in))
	out := make([]model.BusinessRecord, 0, len(in))
	for _, rec := range in {
		key := rec.Title + "|" + rec.Address
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}
