package swap

import "context"

// Strategy is one concrete mechanism for fulfilling a swap request. The
// orchestrator ranks strategies per request and tries them in order.
type Strategy interface {
	// Name is the stable identifier used as the performance-map key.
	Name() string

	// Supports is a pure, fast filter: no I/O, no chain reads.
	Supports(params Params) bool

	// Validate runs cheap chain/metadata checks and returns a descriptive
	// error when the request cannot be serviced.
	Validate(ctx context.Context, params Params) error

	// Estimate quotes the request without executing anything.
	Estimate(ctx context.Context, params Params) (*Estimate, error)

	// Execute performs the swap, firing progress callbacks as transactions
	// are dispatched. Step N+1 never begins before step N is confirmed.
	Execute(ctx context.Context, params Params, cb Callbacks) (*Result, error)
}
