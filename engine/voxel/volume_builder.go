package voxel

import "log/slog"

// VolumeBuilderOption is a functional option used to configure a Volume.
type VolumeBuilderOption func(*volume)

// WithLabel sets the debug label prefix of every GPU object the volume creates.
func WithLabel(label string) VolumeBuilderOption {
	return func(v *volume) {
		if label != "" {
			v.label = label
		}
	}
}

// WithLogger sets the logger used for volume diagnostics.
func WithLogger(logger *slog.Logger) VolumeBuilderOption {
	return func(v *volume) {
		if logger != nil {
			v.logger = logger
		}
	}
}
