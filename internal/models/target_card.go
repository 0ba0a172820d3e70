package models

import "time"

// TargetCard is a Thortful card downloaded as a swap target, ranked by how
// often customers completed a face swap on it.
type TargetCard struct {
	ProductID string `gorm:"primaryKey;size:32"`
	Rank      int
	SwapCount int
	FilePath  string `gorm:"size:256"`
	CreatedAt time.Time
}
