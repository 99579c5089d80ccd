// Package config loads the transcode defaults the download pipeline applies
// when a channel's format calls for audio and/or video output.
package config

import (
	"log/slog"

	"channelmirror/internal/pkg/config"
	"channelmirror/internal/usecase/pipeline"
)

// TranscodeConfig holds the default audio/video transcode settings applied
// to every pipeline run, loaded once at startup.
type TranscodeConfig struct {
	Audio pipeline.AudioOptions
	Video pipeline.VideoOptions
}

// DefaultTranscodeConfig returns conservative, widely-compatible defaults:
// MP3 audio at 128kbps, H.264 MP4 video at a balanced preset/CRF.
func DefaultTranscodeConfig() TranscodeConfig {
	return TranscodeConfig{
		Audio: pipeline.AudioOptions{
			Format:     "mp3",
			Bitrate:    "128k",
			SampleRate: 44100,
			Channels:   2,
		},
		Video: pipeline.VideoOptions{
			Format:          "mp4",
			VideoCodec:      "libx264",
			Preset:          "medium",
			CRF:             23,
			AudioBitrate:    "128k",
			AudioSampleRate: 44100,
			AudioChannels:   2,
			Threads:         0,
		},
	}
}

// LoadTranscodeConfigFromEnv loads transcode defaults from environment
// variables with fail-open fallback to DefaultTranscodeConfig's values.
//
// Environment variables:
//   - TRANSCODE_AUDIO_FORMAT, TRANSCODE_AUDIO_BITRATE
//   - TRANSCODE_VIDEO_FORMAT, TRANSCODE_VIDEO_CODEC, TRANSCODE_VIDEO_PRESET
//   - TRANSCODE_VIDEO_CRF (0-51, libx264 quality scale)
func LoadTranscodeConfigFromEnv(logger *slog.Logger) TranscodeConfig {
	cfg := DefaultTranscodeConfig()

	cfg.Audio.Format = config.LoadEnvString("TRANSCODE_AUDIO_FORMAT", cfg.Audio.Format)
	cfg.Audio.Bitrate = config.LoadEnvString("TRANSCODE_AUDIO_BITRATE", cfg.Audio.Bitrate)

	cfg.Video.Format = config.LoadEnvString("TRANSCODE_VIDEO_FORMAT", cfg.Video.Format)
	cfg.Video.VideoCodec = config.LoadEnvString("TRANSCODE_VIDEO_CODEC", cfg.Video.VideoCodec)
	cfg.Video.Preset = config.LoadEnvString("TRANSCODE_VIDEO_PRESET", cfg.Video.Preset)

	result := config.LoadEnvInt("TRANSCODE_VIDEO_CRF", cfg.Video.CRF, func(v int) error {
		return config.ValidateIntRange(v, 0, 51)
	})
	cfg.Video.CRF = result.Value.(int)
	if result.FallbackApplied {
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "VideoCRF"), slog.String("warning", warning))
		}
	}

	return cfg
}
