// Package status provides the admin HTTP handlers for the get_status()
// and get_queue() operations.
package status

import (
	"channelmirror/internal/domain/entity"
	statusUC "channelmirror/internal/usecase/status"
)

// StatusDTO is the wire representation of get_status().
type StatusDTO struct {
	Version         string                            `json:"version"`
	UptimeSeconds   float64                           `json:"uptime_seconds"`
	QueueCounts     map[entity.QueueItemStatus]int     `json:"queue_counts"`
	ActiveDownloads int                               `json:"active_downloads"`
	CompletedTotal  int                               `json:"completed_total"`
	FailedTotal     int                               `json:"failed_total"`
	Storage         StorageDTO                        `json:"storage"`
}

type StorageDTO struct {
	TotalBytes uint64 `json:"total_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
	UsedBytes  uint64 `json:"used_bytes"`
}

func toStatusDTO(s *statusUC.Status) StatusDTO {
	return StatusDTO{
		Version:         s.Version,
		UptimeSeconds:   s.Uptime.Seconds(),
		QueueCounts:     s.QueueCounts,
		ActiveDownloads: s.ActiveDownloads,
		CompletedTotal:  s.CompletedTotal,
		FailedTotal:     s.FailedTotal,
		Storage: StorageDTO{
			TotalBytes: s.Storage.Total,
			FreeBytes:  s.Storage.Free,
			UsedBytes:  s.Storage.Used,
		},
	}
}

// QueueItemDTO is one annotated queue item in get_queue().
type QueueItemDTO struct {
	ID           string `json:"id"`
	EpisodeID    string `json:"episode_id"`
	EpisodeTitle string `json:"episode_title,omitempty"`
	ChannelID    string `json:"channel_id,omitempty"`
	ChannelTitle string `json:"channel_title,omitempty"`
	Status       string `json:"status"`
	Attempts     int    `json:"attempts"`
	LastError    string `json:"last_error,omitempty"`
}

type QueueDTO struct {
	InProgress   []QueueItemDTO `json:"in_progress"`
	RecentFailed []QueueItemDTO `json:"recent_failed"`
}

func toQueueItemDTO(v statusUC.QueueItemView) QueueItemDTO {
	return QueueItemDTO{
		ID:           v.Item.ID,
		EpisodeID:    v.Item.EpisodeID,
		EpisodeTitle: v.EpisodeTitle,
		ChannelID:    v.ChannelID,
		ChannelTitle: v.ChannelTitle,
		Status:       string(v.Item.Status),
		Attempts:     v.Item.Attempts,
		LastError:    v.Item.LastError,
	}
}

func toQueueDTO(q *statusUC.Queue) QueueDTO {
	inProgress := make([]QueueItemDTO, 0, len(q.InProgress))
	for _, v := range q.InProgress {
		inProgress = append(inProgress, toQueueItemDTO(v))
	}
	recentFailed := make([]QueueItemDTO, 0, len(q.RecentFailed))
	for _, v := range q.RecentFailed {
		recentFailed = append(recentFailed, toQueueItemDTO(v))
	}
	return QueueDTO{InProgress: inProgress, RecentFailed: recentFailed}
}
