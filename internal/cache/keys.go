package cache

import "strings"

const (
	GlobalKeyPrefix = "mcqworker"

	workerService  = "worker"
	jobObject      = "job"
	claimSuffix    = "claim"
	progressSuffix = "progress"
)

// GenerateCacheKey generates a cache key for a given service, object type, and identifier.
// If paramsKey are provided, they are joined by "_" and appended to the cache key.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

// JobClaimKey is the key a worker sets to take exclusive ownership of a job.
func JobClaimKey(jobID string) string {
	return GenerateCacheKey(workerService, jobObject, jobID, claimSuffix)
}

// JobProgressKey holds the latest progress snapshot hash of a job.
func JobProgressKey(jobID string) string {
	return GenerateCacheKey(workerService, jobObject, jobID, progressSuffix)
}
