// Package health provides pollable health checks that can follow a
// component's lifecycle.
//
// # Usage
//
//	check, err := health.New("pipeline", "log pipeline keeps up", func(ctx context.Context) (health.Status, error) {
//	    if p.Buffered() > p.Stats().Capacity/2 {
//	        return health.StatusWarning, nil
//	    }
//	    return health.StatusOK, nil
//	})
//
//	// enabled while the machine is running
//	machine.Register("health", health.FollowLifecycle(check))
//
// A disabled check returns errs.ErrAgain from Poll without calling its function.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package health
