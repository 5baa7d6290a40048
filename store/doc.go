// Package store groups the job.Store backends of the reference executor.
//
// # Available Backends
//
//   - store/memory: in-process records with a cron-scheduled expiry sweep
//   - store/redis: one JSON string per job under "jobwatch:job:<id>", with a TTL
//
// Both keep a record for a fixed TTL after its last write (one hour by
// default) and report unknown or expired handles as jobwatch.ErrJobNotFound.
//
// # Usage
//
//	s := memory.New(memory.WithTTL(time.Hour))
//	if err := s.Start(ctx); err != nil { ... }
//	defer s.Close(ctx)
//
//	pool := worker.NewPool(s, handler)
package store
