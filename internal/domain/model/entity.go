package model

import "time"

// Version describes one trained ensemble artifact.
type Version struct {
	ID           string             `json:"id"` // e.g. v20260826_041500
	TrainedAt    time.Time          `json:"trained_at"`
	TrainStart   time.Time          `json:"train_start"`
	TrainEnd     time.Time          `json:"train_end"`
	Folds        int                `json:"folds"`
	Metrics      map[string]float64 `json:"metrics"`
	ArtifactPath string             `json:"artifact_path"`
}
