package metrics

import "time"

// RecordEpisodesDiscovered records the number of episodes discovered on a channel.
func RecordEpisodesDiscovered(channelID string, count int) {
	if count > 0 {
		EpisodesDiscoveredTotal.WithLabelValues(channelID).Add(float64(count))
	}
}

// RecordPipelineRun records the terminal status of a pipeline run.
// Status should be one of "completed", "failed", "cancelled".
func RecordPipelineRun(status string) {
	PipelineRunsTotal.WithLabelValues(status).Inc()
}

// RecordPipelineRunDuration records the time taken to run one episode
// through fetch, transcode, and store.
func RecordPipelineRunDuration(duration time.Duration) {
	PipelineRunDuration.Observe(duration.Seconds())
}

// RecordRefresh records metrics for a channel refresh operation.
func RecordRefresh(channelID string, duration time.Duration, discovered int) {
	RefreshDuration.WithLabelValues(channelID).Observe(duration.Seconds())
	RecordEpisodesDiscovered(channelID, discovered)
}

// RecordRefreshError records an error during channel refresh.
func RecordRefreshError(channelID, errorKind string) {
	RefreshErrors.WithLabelValues(channelID, errorKind).Inc()
}

// UpdateQueueDepth sets the current queue depth for a status.
func UpdateQueueDepth(status string, count int) {
	QueueDepth.WithLabelValues(status).Set(float64(count))
}

// RecordRetentionDeletion records one episode deleted by retention for a channel.
func RecordRetentionDeletion(channelID string) {
	RetentionDeletionsTotal.WithLabelValues(channelID).Inc()
}

// UpdateEpisodesTotal updates the total count of episodes in the database.
func UpdateEpisodesTotal(count int) {
	EpisodesTotal.Set(float64(count))
}

// UpdateChannelsTotal updates the total count of channels in the database.
func UpdateChannelsTotal(count int) {
	ChannelsTotal.Set(float64(count))
}

// UpdateDiskBytesFree updates the free-bytes-on-volume gauge.
func UpdateDiskBytesFree(free uint64) {
	DiskBytesFree.Set(float64(free))
}

// RecordDBQuery records the duration of a database query operation.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
