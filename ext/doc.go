// Package ext defines the extension system for jobwatch.
//
// # Implementing an Extension
//
//	type Printer struct{}
//
//	func (Printer) Name() string { return "printer" }
//
//	func (Printer) OnJobSucceeded(ctx context.Context, h job.Handle, res *job.Result, elapsed time.Duration) error {
//	    fmt.Printf("job %s finished in %s\n", h, elapsed)
//	    return nil
//	}
//
// # Session Hooks
//
//   - [JobSubmitted] the executor accepted a job
//   - [StepsReconciled] a snapshot changed the progress steps
//   - [PollFailed] a status request failed and will be retried
//   - [JobSucceeded] the result was fetched
//   - [JobFailed] the session reached the failed state
//   - [SessionReset] observation stopped before a terminal state
//
// # Executor Hooks
//
//   - [JobStarted] a worker began running a job
//   - [JobFinished] a worker finished a job
//
// # Other Hooks
//
//   - [Shutdown] the owner is shutting down
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface. Hook errors are logged and
// never propagated.
package ext
