// Package audithook is a jobwatch extension that turns lifecycle events
// into structured audit records.
//
// Session hooks (submitted, poll failed, succeeded, failed, reset) and
// executor hooks (started, finished) each produce an [AuditEvent] delivered
// to a [Recorder]. Severity is info for normal progress, warning for failed
// polls and resets, and critical for terminal failures.
//
// # Logging audit records
//
//	audithook.New(audithook.SlogRecorder(logger))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionJobFailed,
//	        audithook.ActionExecutorFinished,
//	    ),
//	)
package audithook
