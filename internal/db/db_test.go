package db

import (
	"strings"
	"testing"
	"time"

	"github.com/lukejeff/swapbench/internal/config"
	"github.com/lukejeff/swapbench/internal/models"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{Host: "10.0.0.5", Port: 3307, Database: "swapbench_ci"})
	want := "root@tcp(10.0.0.5:3307)/swapbench_ci?parseTime=true"
	if dsn != want {
		t.Errorf("DSN = %q, want %q", dsn, want)
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DBConfig{Driver: "postgres"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "postgres") {
		t.Errorf("error = %v, want mention of driver name", err)
	}
}

func TestConnect_SQLiteMemoryAndMigrate(t *testing.T) {
	db, err := Connect(config.DBConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, m := range AllModels() {
		if !db.Migrator().HasTable(m) {
			t.Errorf("expected table for %T after migration", m)
		}
	}
}

func TestSwapRequest_RoundTrip(t *testing.T) {
	db, err := Connect(config.DBConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	session := models.RunSession{
		ID:         "sess-1",
		Mode:       "batch",
		APIVariant: "v2",
		FaceMode:   "multi",
		Planned:    400,
		StartedAt:  time.Now(),
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := models.SwapRequest{
		RequestID:   "v4_1700000000000",
		SessionID:   "sess-1",
		SourceImage: "source_01.jpg",
		TargetImage: "target_05.jpg",
		ComboKey:    "source_01_to_target_05",
		APIVariant:  "v2",
		Success:     true,
		HTTPStatus:  200,
	}
	if err := db.Create(&req).Error; err != nil {
		t.Fatalf("create request: %v", err)
	}

	var got models.SwapRequest
	if err := db.Where("combo_key = ?", "source_01_to_target_05").First(&got).Error; err != nil {
		t.Fatalf("query request: %v", err)
	}
	if got.RequestID != "v4_1700000000000" {
		t.Errorf("RequestID = %q, want v4_1700000000000", got.RequestID)
	}
	if !got.Success {
		t.Error("Success = false, want true")
	}

	// Duplicate request IDs are rejected by the unique index.
	dup := models.SwapRequest{RequestID: "v4_1700000000000", ComboKey: "other"}
	if err := db.Create(&dup).Error; err == nil {
		t.Error("expected unique index violation for duplicate RequestID")
	}
}

func TestReset_DropsData(t *testing.T) {
	db, err := Connect(config.DBConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := db.Create(&models.TargetCard{ProductID: "67816ae75990fc276575cd07", Rank: 1, SwapCount: 587}).Error; err != nil {
		t.Fatalf("create card: %v", err)
	}
	if err := Reset(db); err != nil {
		t.Fatalf("reset: %v", err)
	}

	var count int64
	if err := db.Model(&models.TargetCard{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count after reset = %d, want 0", count)
	}
}
