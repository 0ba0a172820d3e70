package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lukejeff/swapbench/internal/models"
)

// csvHeader is the stable column order of the request log. Columns mirror
// the SwapRequest model so the CSV and the database stay interchangeable.
var csvHeader = []string{
	"timestamp",
	"request_id",
	"session_id",
	"batch_number",
	"source_image",
	"target_image",
	"combo_key",
	"api_variant",
	"face_mode",
	"source_file_size_kb",
	"target_file_size_kb",
	"source_base64_size_kb",
	"target_base64_size_kb",
	"total_payload_size_mb",
	"source_face_index",
	"target_face_index",
	"detection_face_order",
	"model_type",
	"swap_type",
	"hardware_type",
	"request_start_time",
	"request_end_time",
	"request_duration_seconds",
	"http_status_code",
	"success",
	"timeout_occurred",
	"error_type",
	"error_message",
	"response_content_length",
	"response_content_type",
	"api_generation_time",
	"api_remaining_credits",
	"api_request_id",
	"output_file_saved",
}

// CSVLog appends request rows to an on-disk CSV file, writing the header
// when the file is first created.
type CSVLog struct {
	path string
}

// OpenCSVLog opens (or creates) the CSV request log at path.
func OpenCSVLog(path string) (*CSVLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("results: create log dir: %w", err)
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("results: create %s: %w", path, err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("results: write CSV header: %w", err)
		}
		w.Flush()
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("results: close %s: %w", path, err)
		}
	}
	return &CSVLog{path: path}, nil
}

// Path returns the log file location.
func (l *CSVLog) Path() string { return l.path }

// Append writes one request row. The file is opened per call so a crashed
// batch never loses buffered rows.
func (l *CSVLog) Append(r *models.SwapRequest) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("results: open %s: %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvRow(r)); err != nil {
		return fmt.Errorf("results: append row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("results: flush row: %w", err)
	}
	return nil
}

// Rows counts the data rows already logged (excluding the header), used to
// number batches across resumed runs.
func (l *CSVLog) Rows() (int, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return 0, fmt.Errorf("results: open %s: %w", l.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	count := 0
	for {
		_, err := r.Read()
		if err != nil {
			break
		}
		count++
	}
	if count > 0 {
		count-- // header
	}
	return count, nil
}

func csvRow(r *models.SwapRequest) []string {
	return []string{
		r.CreatedAt.Format("2006-01-02T15:04:05.000"),
		r.RequestID,
		r.SessionID,
		strconv.Itoa(r.BatchNum),
		r.SourceImage,
		r.TargetImage,
		r.ComboKey,
		r.APIVariant,
		r.FaceMode,
		formatFloat(r.SourceFileKB),
		formatFloat(r.TargetFileKB),
		formatFloat(r.SourceBase64KB),
		formatFloat(r.TargetBase64KB),
		formatFloat(r.TotalPayloadMB),
		r.SourceFaceIndex,
		r.TargetFaceIndex,
		r.DetectionOrder,
		r.ModelType,
		r.SwapType,
		r.HardwareType,
		formatTime(r.RequestStart),
		formatTime(r.RequestEnd),
		formatFloat(r.DurationSeconds),
		strconv.Itoa(r.HTTPStatus),
		strconv.FormatBool(r.Success),
		strconv.FormatBool(r.TimedOut),
		r.ErrorType,
		r.ErrorMessage,
		strconv.FormatInt(r.ResponseBytes, 10),
		r.ResponseType,
		r.GenerationTime,
		r.RemainingCredits,
		r.APIRequestID,
		strconv.FormatBool(r.OutputSaved),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02T15:04:05.000")
}
