package models

import "time"

// SwapRequest captures complete request/response detail for one face-swap
// API call, one row per attempt. Mirrors the columns of the CSV log so the
// database and the CSV stay interchangeable.
type SwapRequest struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RequestID string `gorm:"size:64;uniqueIndex"`
	SessionID string `gorm:"size:64;index"`
	BatchNum  int

	SourceImage string `gorm:"size:128"`
	TargetImage string `gorm:"size:128"`
	ComboKey    string `gorm:"size:256;index"`
	APIVariant  string `gorm:"size:16;index"`
	FaceMode    string `gorm:"size:8"`

	SourceFileKB    float64
	TargetFileKB    float64
	SourceBase64KB  float64
	TargetBase64KB  float64
	TotalPayloadMB  float64
	SourceFaceIndex string `gorm:"size:16"`
	TargetFaceIndex string `gorm:"size:16"`
	DetectionOrder  string `gorm:"size:32"`
	ModelType       string `gorm:"size:16"`
	SwapType        string `gorm:"size:16"`
	HardwareType    string `gorm:"size:16"`

	RequestStart    time.Time
	RequestEnd      time.Time
	DurationSeconds float64
	HTTPStatus      int
	Success         bool `gorm:"index"`
	TimedOut        bool
	ErrorType       string `gorm:"size:32"`
	ErrorMessage    string `gorm:"size:512"`

	ResponseBytes    int64
	ResponseType     string `gorm:"size:64"`
	GenerationTime   string `gorm:"size:32"`
	RemainingCredits string `gorm:"size:32"`
	APIRequestID     string `gorm:"size:64"`
	OutputSaved      bool

	CreatedAt time.Time
}
