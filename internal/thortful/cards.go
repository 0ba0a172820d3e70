package thortful

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
)

// DefaultCDNBaseURL serves rendered card artwork.
const DefaultCDNBaseURL = "https://images.thortful.com"

// Card is one entry from the most-completed-swaps ranking export.
type Card struct {
	ProductID string
	SwapCount int
	Rank      int
}

// productIDLen is the length of a card product id (a Mongo ObjectId).
const productIDLen = 24

// ParseRankingCSV reads the "Most Completed Swaps of a Face Swap Card"
// export. The export has preamble rows and embedded whitespace in quoted
// fields; anything that does not look like a (product id, count) pair is
// skipped. Cards come back sorted by swap count, highest first, with Rank
// assigned.
func ParseRankingCSV(r io.Reader) ([]Card, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var cards []Card
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// Ranking exports contain ragged header rows; skip them.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("thortful: read ranking CSV: %w", err)
		}
		if len(record) < 2 {
			continue
		}
		id := strings.TrimSpace(record[0])
		countStr := strings.TrimSpace(record[1])
		if len(id) != productIDLen || strings.Contains(id, " ") {
			continue
		}
		count, err := strconv.ParseFloat(countStr, 64)
		if err != nil {
			continue
		}
		cards = append(cards, Card{ProductID: id, SwapCount: int(count)})
	}

	if len(cards) == 0 {
		return nil, fmt.Errorf("thortful: no card rows found in ranking CSV")
	}

	sort.Slice(cards, func(i, j int) bool { return cards[i].SwapCount > cards[j].SwapCount })
	for i := range cards {
		cards[i].Rank = i + 1
	}
	return cards, nil
}

// LoadRankingCSV parses a ranking export from disk.
func LoadRankingCSV(path string) ([]Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("thortful: open ranking CSV: %w", err)
	}
	defer f.Close()
	return ParseRankingCSV(f)
}

// CardImageURL builds the CDN URL for a card's medium-size artwork.
func (c *Client) CardImageURL(productID string) string {
	return fmt.Sprintf("%s/cdn-cgi/image/width=600,format=auto,quality=90/card/%s/%s_medium.jpg?version=1",
		c.cdnBaseURL, productID, productID)
}

// DownloadCard fetches a card's artwork from the CDN and writes it to path.
func (c *Client) DownloadCard(ctx context.Context, productID, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.CardImageURL(productID), nil)
	if err != nil {
		return fmt.Errorf("thortful: build card download: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("thortful: download card %s: %w", productID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("thortful: download card %s: HTTP %d", productID, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("thortful: card %s: not an image (content-type %q)", productID, ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("thortful: read card %s: %w", productID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("thortful: save card %s: %w", productID, err)
	}
	return nil
}
