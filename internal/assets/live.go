package assets

import (
	"math/rand/v2"
	"sort"
)

// Live returns the confirmed assets whose display window contains now. An
// absent bound is open on that side. With noTimeFilter every confirmed asset
// is returned. Output order follows input order and carries no meaning.
func Live(all []Asset, now int64, noTimeFilter bool) []Asset {
	live := make([]Asset, 0, len(all))
	for _, asset := range all {
		if asset.State != StateConfirmed {
			continue
		}
		if !noTimeFilter && !asset.InWindow(now) {
			continue
		}
		live = append(live, asset)
	}
	return live
}

// InWindow reports whether now lies within [Starts, Ends], inclusive. A nil
// or zero bound leaves that side open.
func (a Asset) InWindow(now int64) bool {
	if a.Starts != nil && *a.Starts != 0 && *a.Starts > now {
		return false
	}
	if a.Ends != nil && *a.Ends != 0 && *a.Ends < now {
		return false
	}
	return true
}

// Shuffle returns a shuffled copy so no single asset keeps the first position
// in user-facing listings. A nil rng uses the global source.
func Shuffle(in []Asset, rng *rand.Rand) []Asset {
	out := append([]Asset(nil), in...)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if rng == nil {
		rand.Shuffle(len(out), swap)
	} else {
		rng.Shuffle(len(out), swap)
	}
	return out
}

// IDs returns the asset ids in ascending order.
func IDs(in []Asset) []int64 {
	ids := make([]int64, 0, len(in))
	for _, asset := range in {
		ids = append(ids, asset.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OwnedBy returns the assets uploaded by user that were not deleted.
func OwnedBy(all []Asset, user string) []Asset {
	var out []Asset
	for _, asset := range all {
		if asset.User == user && asset.State != StateDeleted {
			out = append(out, asset)
		}
	}
	return out
}

// AwaitingModeration returns the assets whose owner requested a review.
func AwaitingModeration(all []Asset) []Asset {
	var out []Asset
	for _, asset := range all {
		if asset.State == StateReview {
			out = append(out, asset)
		}
	}
	return out
}

// Pending returns the assets in a non-terminal state.
func Pending(all []Asset) []Asset {
	var out []Asset
	for _, asset := range all {
		if asset.State.Pending() {
			out = append(out, asset)
		}
	}
	return out
}

// CountByState counts assets per state. Every known state is present in the
// result, zero when no asset is in it.
func CountByState(all []Asset) map[State]int {
	counts := make(map[State]int, len(States))
	for _, state := range States {
		counts[state] = 0
	}
	for _, asset := range all {
		counts[asset.State]++
	}
	return counts
}
