// Package middleware provides composable wrappers around each call a client
// makes to the job submission service.
//
// A [Middleware] receives the [Call] being made and the next [Handler] in the
// chain. Middleware are composed with [Chain] and applied right-to-left: the
// first middleware in the list is the outermost wrapper.
//
//	// logging → recover → rate limit → transport
//	chain := middleware.Chain(
//	    middleware.Logging(logger),
//	    middleware.Recover(logger),
//	    middleware.RateLimit(rate.NewLimiter(5, 1)),
//	)
//
// # Built-in Middleware
//
//   - [Logging] logs each call with its operation, job id and duration
//   - [Recover] converts panics into errors
//   - [Timeout] bounds each call with a deadline
//   - [RateLimit] waits on a token bucket before each call
//   - [Tracing] wraps each call in an OpenTelemetry client span
//   - [Metrics] records per-operation latency and outcome counters
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware
