package meter

import (
	"context"

	"github.com/schoolwatt/schoolwatt/pkg/amr"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// AggregateMeter is a meter whose store is the half-hour-wise sum of its
// member meters over their overlapping date range. The member references are
// non-owning; the derived store belongs to the aggregate. Recomputation is an
// explicit operation so that callers control when the (potentially large)
// summation happens, and so that downstream per-calculation caches are never
// silently serving a superseded membership.
type AggregateMeter struct {
	Meter
	members []*Meter
}

// NewAggregate builds an aggregate over the given members and computes its
// store. Members are typically all of a school's meters for one fuel type.
func NewAggregate(ctx context.Context, info types.MeterInfo, members []*Meter) *AggregateMeter {
	a := &AggregateMeter{
		Meter:   Meter{Info: info, Store: amr.NewStore()},
		members: members,
	}
	a.Recompute(ctx)
	return a
}

// Members returns the underlying meters, in the order supplied.
func (a *AggregateMeter) Members() []*Meter {
	return a.members
}

// SetMembers replaces the membership. The store is stale until Recompute is
// called.
func (a *AggregateMeter) SetMembers(members []*Meter) {
	a.members = members
}

// Recompute rebuilds the derived store from scratch. It is never patched
// incrementally: a full rebuild is cheap relative to the cost calculations
// that follow, and incremental updates were a reliable source of
// absence-versus-zero bugs.
func (a *AggregateMeter) Recompute(ctx context.Context) {
	stores := make([]*amr.HalfHourlyStore, 0, len(a.members))
	for _, m := range a.members {
		stores = append(stores, m.Store)
	}
	a.Store = amr.CombineStores(ctx, stores...)
}
