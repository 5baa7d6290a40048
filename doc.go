// Package jobwatch submits long-running jobs to a remote executor and
// observes them to completion.
//
// A caller hands a job request to a session. The session validates it,
// submits it, and receives an opaque job handle. It then polls the
// executor's status endpoint on a fixed cadence, folds each status snapshot
// into an ordered progress log, and once the job reports a terminal state
// fetches the final result exactly once.
//
// # Quick Start
//
//	c := client.New("http://localhost:8000/api")
//	s := session.New(c, session.WithLogger(logger))
//	defer s.Close(ctx)
//
//	h, err := s.Submit(ctx, job.Request{Topic: "tides", TargetChars: 1200})
//	res, err := s.Wait(ctx)
//
// # Architecture
//
// The packages are layered leaf first: [job] holds the wire types,
// [progress] the reconciled progress log, [poller] the cancellable repeating
// task, [client] the HTTP transport, and [session] the state machine tying
// them together. [ext], [stream] and [observability] let callers react to
// session lifecycle events.
//
// The api, worker and store packages implement a reference executor that
// serves the same HTTP contract, used by the jobwatch command and by tests.
//
// This package holds the shared sentinel errors and [Config].
package jobwatch
