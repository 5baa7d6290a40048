package redis

const defaultPrefix = "jobwatch:"

// jobKey returns the key for a job record: <prefix>job:{id}
func (s *Store) jobKey(id string) string { return s.prefix + "job:" + id }
