// Package results manages the on-disk result tree: result images, JSON
// metadata sidecars, the append-only CSV request log and the resume scan
// that decides which combinations still need running.
package results

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Combo is one (source, target, API variant) combination. Source and Target
// are image basenames without extension; Variant is the filename-safe slug
// (v2, v4, v43, thortful).
type Combo struct {
	Source  string
	Target  string
	Variant string
}

// Key is the combination identity shared by the result image, the metadata
// sidecar and the log rows.
func (c Combo) Key() string {
	return c.Source + "_to_" + c.Target
}

// ResultFile returns the result image filename for this combination.
func (c Combo) ResultFile() string {
	return fmt.Sprintf("%s_%s_result.jpg", c.Key(), c.Variant)
}

// MetadataFile returns the JSON sidecar filename for this combination.
func (c Combo) MetadataFile() string {
	return fmt.Sprintf("%s_%s_metadata.json", c.Key(), c.Variant)
}

// ParseResultFilename recovers a Combo from a result image filename of the
// form <source>_to_<target>_<variant>_result.jpg.
func ParseResultFilename(name string) (Combo, bool) {
	base := strings.TrimSuffix(filepath.Base(name), ".jpg")
	if !strings.HasSuffix(base, "_result") {
		return Combo{}, false
	}
	base = strings.TrimSuffix(base, "_result")

	i := strings.LastIndex(base, "_")
	if i < 0 {
		return Combo{}, false
	}
	variant := base[i+1:]
	rest := base[:i]

	parts := strings.SplitN(rest, "_to_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Combo{}, false
	}
	return Combo{Source: parts[0], Target: parts[1], Variant: variant}, true
}

// Metadata is the JSON sidecar written next to each result image. Field
// names follow the sidecars the review pages read.
type Metadata struct {
	Timestamp        time.Time `json:"timestamp"`
	SourceImage      string    `json:"source_image"`
	TargetImage      string    `json:"target_image"`
	OutputImage      string    `json:"output_image"`
	APIVariant       string    `json:"api_version"`
	TestType         string    `json:"test_type,omitempty"`
	SourceFaces      string    `json:"source_faces_index,omitempty"`
	TargetFaces      string    `json:"input_faces_index,omitempty"`
	GenerationTime   string    `json:"generation_time,omitempty"`
	RemainingCredits string    `json:"remaining_credits,omitempty"`
	RequestID        string    `json:"request_id,omitempty"`
	RequestSeconds   float64   `json:"request_time,omitempty"`
	ContentLength    int64     `json:"content_length,omitempty"`
	LogID            string    `json:"csv_log_id,omitempty"`
}

// Store reads and writes the result tree rooted at Dir.
type Store struct {
	Dir string
}

// NewStore creates the results directory if needed and returns a Store.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("results: create %s: %w", dir, err)
	}
	return &Store{Dir: dir}, nil
}

// SaveResult writes the image bytes and the metadata sidecar for a
// combination. A nil metadata skips the sidecar.
func (s *Store) SaveResult(c Combo, image []byte, md *Metadata) error {
	imgPath := filepath.Join(s.Dir, c.ResultFile())
	if err := os.WriteFile(imgPath, image, 0o644); err != nil {
		return fmt.Errorf("results: write %s: %w", imgPath, err)
	}

	if md == nil {
		return nil
	}
	md.OutputImage = c.ResultFile()
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("results: marshal metadata for %s: %w", c.Key(), err)
	}
	mdPath := filepath.Join(s.Dir, c.MetadataFile())
	if err := os.WriteFile(mdPath, data, 0o644); err != nil {
		return fmt.Errorf("results: write %s: %w", mdPath, err)
	}
	return nil
}

// LoadMetadata reads the sidecar for a combination. Returns nil without
// error if no sidecar exists.
func (s *Store) LoadMetadata(c Combo) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, c.MetadataFile()))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("results: read metadata for %s: %w", c.Key(), err)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("results: parse metadata for %s: %w", c.Key(), err)
	}
	return &md, nil
}

// Has reports whether a result image already exists for the combination.
func (s *Store) Has(c Combo) bool {
	_, err := os.Stat(filepath.Join(s.Dir, c.ResultFile()))
	return err == nil
}

// Existing scans the results directory and returns all combinations that
// already have a result image.
func (s *Store) Existing() ([]Combo, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "*_result.jpg"))
	if err != nil {
		return nil, fmt.Errorf("results: scan %s: %w", s.Dir, err)
	}
	var combos []Combo
	for _, m := range matches {
		if c, ok := ParseResultFilename(m); ok {
			combos = append(combos, c)
		}
	}
	sort.Slice(combos, func(i, j int) bool {
		if combos[i].Key() != combos[j].Key() {
			return combos[i].Key() < combos[j].Key()
		}
		return combos[i].Variant < combos[j].Variant
	})
	return combos, nil
}

// EncodeImageBase64 reads an image file and returns its base64 encoding
// plus the raw file size in bytes.
func EncodeImageBase64(path string) (string, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("results: read image %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(data), int64(len(data)), nil
}

// ImageStem returns an image path's basename without extension, the form
// used in combination keys.
func ImageStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ListImages returns the sorted .jpg and .png files in a directory.
func ListImages(dir string) ([]string, error) {
	var paths []string
	for _, pattern := range []string{"*.jpg", "*.png"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("results: list %s: %w", dir, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths, nil
}
