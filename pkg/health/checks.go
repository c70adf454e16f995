package health

import (
	"context"
	"fmt"
)

// Pinger is any dependency that can be probed with a round trip.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck probes p. An unreachable optional dependency reports degraded,
// a required one reports down. A nil p is an optional dependency that was
// never configured.
func PingCheck(p Pinger, required bool) Check {
	return func(ctx context.Context) ComponentHealth {
		if p == nil {
			return ComponentHealth{Status: StatusDegraded, Message: "not configured"}
		}
		if err := p.Ping(ctx); err != nil {
			status := StatusDegraded
			if required {
				status = StatusDown
			}
			return ComponentHealth{Status: status, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// SnapshotCheck reports down until ready returns true, then describes the
// live snapshot with describe.
func SnapshotCheck(ready func() bool, describe func() (records int, version uint64)) Check {
	return func(context.Context) ComponentHealth {
		if !ready() {
			return ComponentHealth{Status: StatusDown, Message: "no catalog loaded"}
		}
		records, version := describe()
		if records == 0 {
			return ComponentHealth{Status: StatusDegraded, Message: fmt.Sprintf("version %d has no records", version)}
		}
		return ComponentHealth{Status: StatusUp, Message: fmt.Sprintf("%d records, version %d", records, version)}
	}
}
