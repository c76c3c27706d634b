// Package pool implements the elastic, thread-safe Host multiplexer: a
// population of Workers, each owning one *wapc.Host, dispatched across by
// a single goroutine that grows the population under sustained load and
// lets it decay back down once idle.
//
// Elasticity is governed by four parameters — min/max threads, max wait
// before growing, max idle before retiring — modeled with Go channels and
// goroutines: a buffered channel of idle-worker tokens stands in for a
// bounded mpsc channel, and a timer races idle-token arrival against
// population growth.
//
// # Basic usage
//
//	p, err := pool.New(pool.Config{
//	    Name:       "guest-pool",
//	    MinThreads: 2,
//	    MaxThreads: 8,
//	    MaxWait:    50 * time.Millisecond,
//	    MaxIdle:    5 * time.Minute,
//	    Factory: func() (*wapc.Host, error) {
//	        return wapc.NewHost(ctx, waengine.New(runtime), guestWasm)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer p.Close(ctx)
//
//	response, err := p.Call(ctx, "echo", []byte("hello"))
package pool
