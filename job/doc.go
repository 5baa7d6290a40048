// Package job defines the types exchanged with a job executor: the request
// a caller submits, the opaque handle the executor returns, the status
// snapshots observed while the job runs, and the final result.
//
// # Lifecycle
//
// A job observed through status snapshots moves through
//
//	pending → running → done
//	pending → running → error
//
// done and error are terminal. The executor may report "queued" for a job
// that has not started; it is decoded as [LifecyclePending].
//
// # Steps
//
// Progress arrives as a map from step index to description. Indices are
// integers carried as JSON object keys; [Snapshot] decodes them and drops
// keys that are not non-negative integers. [Snapshot.SortedSteps] returns
// the steps in numeric order.
//
// # Executor side
//
// [Record] and [Store] describe how a reference executor persists the jobs
// it runs. They are implemented by the store/memory and store/redis packages.
package job
