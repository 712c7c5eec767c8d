// Package tariff resolves which tariff applies to a meter on a date and
// turns half-hourly consumption into cost and carbon figures.
package tariff

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// Precedes reports whether tariff a outranks tariff b when both cover the
// same date. The precedence table is:
//
//	1. owner level: meter > school > school group > site default
//	2. tie-break: most recently created wins
//
// This single function is the whole of the precedence policy; the resolver
// has no other ordering rules.
func Precedes(a, b *types.Tariff) bool {
	if a.Level != b.Level {
		return a.Level > b.Level
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// Resolver resolves the applicable tariff for any date against a fixed tariff
// set. Resolution is a pure function of (date, tariff set): the set is copied
// at construction and never mutated, so the per-date memo can never serve a
// stale answer. Callers that cache resolutions externally should key them by
// Fingerprint.
type Resolver struct {
	tariffs     []types.Tariff
	fingerprint string
	memo        map[types.Date]int // index into tariffs; -1 = no tariff
}

// NewResolver copies the tariff set and returns a resolver over it.
func NewResolver(tariffs []types.Tariff) *Resolver {
	set := make([]types.Tariff, len(tariffs))
	copy(set, tariffs)
	// deterministic fingerprint independent of input order
	ids := make([]string, len(set))
	for i, t := range set {
		ids[i] = fmt.Sprintf("%s|%d|%s|%s|%d", t.ID, t.Level, t.StartDate, t.EndDate, t.CreatedAt.UnixNano())
	}
	sort.Strings(ids)
	h := fnv.New64a()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return &Resolver{
		tariffs:     set,
		fingerprint: fmt.Sprintf("%016x", h.Sum64()),
		memo:        make(map[types.Date]int),
	}
}

// Fingerprint identifies the tariff set this resolver was built from.
func (r *Resolver) Fingerprint() string {
	return r.fingerprint
}

// FindTariffForDate returns the single applicable tariff for the date, or
// ok=false when no tariff in the set covers it. The caller decides whether a
// system-wide default applies; the resolver never invents one.
func (r *Resolver) FindTariffForDate(d types.Date) (*types.Tariff, bool) {
	if i, ok := r.memo[d]; ok {
		if i < 0 {
			return nil, false
		}
		return &r.tariffs[i], true
	}

	best := -1
	for i := range r.tariffs {
		if !r.tariffs[i].AppliesTo(d) {
			continue
		}
		if best < 0 || Precedes(&r.tariffs[i], &r.tariffs[best]) {
			best = i
		}
	}
	r.memo[d] = best
	if best < 0 {
		return nil, false
	}
	return &r.tariffs[best], true
}

// TariffChangeDatesInPeriod returns every date in [start, end] on which the
// resolved tariff differs from the previous day's resolution, including
// transitions to or from "no tariff". These are the billing-relevant
// discontinuities in the period.
func (r *Resolver) TariffChangeDatesInPeriod(start, end types.Date) []types.Date {
	var changes []types.Date
	prevID, prevOK := r.resolvedID(start.AddDays(-1))
	for d := start; !d.After(end); d = d.AddDays(1) {
		id, ok := r.resolvedID(d)
		if ok != prevOK || id != prevID {
			changes = append(changes, d)
		}
		prevID, prevOK = id, ok
	}
	return changes
}

// AnyDifferentialTariff reports whether any date in [start, end] resolves to
// a tariff with more than one time-of-day rate.
func (r *Resolver) AnyDifferentialTariff(start, end types.Date) bool {
	for d := start; !d.After(end); d = d.AddDays(1) {
		if t, ok := r.FindTariffForDate(d); ok && t.Differential() {
			return true
		}
	}
	return false
}

func (r *Resolver) resolvedID(d types.Date) (string, bool) {
	t, ok := r.FindTariffForDate(d)
	if !ok {
		return "", false
	}
	return t.ID, true
}
