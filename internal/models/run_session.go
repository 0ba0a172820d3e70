package models

import "time"

// RunSession records one batch invocation: which variants ran, how many
// combinations were attempted and how they fared.
type RunSession struct {
	ID         string `gorm:"primaryKey;size:64"`
	Mode       string `gorm:"size:16"`
	APIVariant string `gorm:"size:32"`
	FaceMode   string `gorm:"size:8"`

	Planned    int
	Completed  int
	Failed     int
	Skipped    int
	StartedAt  time.Time
	FinishedAt *time.Time

	Requests []SwapRequest `gorm:"foreignKey:SessionID"`
}
