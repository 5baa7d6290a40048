package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook.
const (
	ActionJobSubmitted     = "job.submitted"
	ActionJobPollFailed    = "job.poll_failed"
	ActionJobSucceeded     = "job.succeeded"
	ActionJobFailed        = "job.failed"
	ActionJobReset         = "job.reset"
	ActionExecutorStarted  = "executor.started"
	ActionExecutorFinished = "executor.finished"
)

// Categories.
const (
	CategorySession  = "jobwatch.session"
	CategoryExecutor = "jobwatch.executor"
)

// ResourceJob is the Resource of every event.
const ResourceJob = "job"

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobSubmitted,
		ActionJobPollFailed,
		ActionJobSucceeded,
		ActionJobFailed,
		ActionJobReset,
		ActionExecutorStarted,
		ActionExecutorFinished,
	}
}
