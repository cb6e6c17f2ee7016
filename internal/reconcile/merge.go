package reconcile

import (
	"sort"

	"github.com/PrabinKa/ShipMate/internal/domain"
)

// Merge builds the combined order view from the local store and the server
// list. The result is the union of both sides deduplicated by order
// identity, server fields winning for orders present on both sides while
// the local bookkeeping (local id, sync state) is preserved. Orders are
// sorted newest first; ties sort by identity so the view is deterministic
// for identical inputs.
func Merge(local, server []domain.Order) []domain.Order {
	localByServerID := make(map[string]domain.Order, len(local))
	for _, l := range local {
		if l.ServerID != "" {
			localByServerID[l.ServerID] = l
		}
	}

	merged := make([]domain.Order, 0, len(local)+len(server))
	seen := make(map[string]struct{}, len(local)+len(server))

	for _, s := range server {
		out := s
		if l, ok := localByServerID[s.ServerID]; ok {
			out.LocalID = l.LocalID
			out.SyncState = domain.SyncSynced
			if out.CreatedAt.IsZero() {
				out.CreatedAt = l.CreatedAt
			}
		}
		if _, dup := seen[out.Identity()]; dup {
			continue
		}
		seen[out.Identity()] = struct{}{}
		merged = append(merged, out)
	}

	for _, l := range local {
		if _, dup := seen[l.Identity()]; dup {
			continue
		}
		seen[l.Identity()] = struct{}{}
		merged = append(merged, l)
	}

	sortByRecency(merged)
	return merged
}

func sortByRecency(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].Identity() < orders[j].Identity()
	})
}
