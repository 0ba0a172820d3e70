// Package report turns a results directory into summary statistics and
// static HTML review pages, and can serve the same pages over HTTP.
package report

import (
	"sort"
	"strconv"
	"time"

	"github.com/lukejeff/swapbench/internal/results"
)

// Item is one completed swap: the result image plus its metadata sidecar.
// Metadata is nil when the sidecar is missing or unreadable.
type Item struct {
	Combo    results.Combo
	Metadata *results.Metadata
}

// File returns the result image filename, relative to the results dir.
func (i *Item) File() string { return i.Combo.ResultFile() }

// GenerationSeconds parses the provider-reported generation time, or 0.
func (i *Item) GenerationSeconds() float64 {
	if i.Metadata == nil {
		return 0
	}
	v, err := strconv.ParseFloat(i.Metadata.GenerationTime, 64)
	if err != nil {
		return 0
	}
	return v
}

// Pair groups the results for one source/target combination across variants,
// so they can be rendered side by side.
type Pair struct {
	Source    string
	Target    string
	ByVariant map[string]*Item
}

// Cell returns the item for a variant, or nil when that variant never ran.
func (p *Pair) Cell(variant string) *Item { return p.ByVariant[variant] }

// SourceGroup collects all results that share a source image.
type SourceGroup struct {
	Source string
	Items  []*Item
}

// VariantStats aggregates the results of one API variant.
type VariantStats struct {
	Variant         string
	Count           int
	TotalGeneration float64
}

// AvgGeneration returns the mean provider generation time in seconds.
func (v VariantStats) AvgGeneration() float64 {
	if v.Count == 0 {
		return 0
	}
	return v.TotalGeneration / float64(v.Count)
}

// Report is everything the HTML pages need, assembled from one scan of the
// results directory.
type Report struct {
	GeneratedAt time.Time
	Items       []*Item
	Variants    []string
	Pairs       []*Pair
	Sources     []*SourceGroup
	Stats       []VariantStats
}

// Build scans the store and assembles a report. Results without a metadata
// sidecar are still included; their stats fields just stay empty.
func Build(store *results.Store) (*Report, error) {
	combos, err := store.Existing()
	if err != nil {
		return nil, err
	}

	r := &Report{GeneratedAt: time.Now()}
	variantSet := map[string]bool{}
	pairs := map[string]*Pair{}
	groups := map[string]*SourceGroup{}
	stats := map[string]*VariantStats{}

	for _, c := range combos {
		md, err := store.LoadMetadata(c)
		if err != nil {
			md = nil
		}
		item := &Item{Combo: c, Metadata: md}
		r.Items = append(r.Items, item)
		variantSet[c.Variant] = true

		pairKey := c.Source + "\x00" + c.Target
		p, ok := pairs[pairKey]
		if !ok {
			p = &Pair{Source: c.Source, Target: c.Target, ByVariant: map[string]*Item{}}
			pairs[pairKey] = p
			r.Pairs = append(r.Pairs, p)
		}
		p.ByVariant[c.Variant] = item

		g, ok := groups[c.Source]
		if !ok {
			g = &SourceGroup{Source: c.Source}
			groups[c.Source] = g
			r.Sources = append(r.Sources, g)
		}
		g.Items = append(g.Items, item)

		s, ok := stats[c.Variant]
		if !ok {
			s = &VariantStats{Variant: c.Variant}
			stats[c.Variant] = s
		}
		s.Count++
		s.TotalGeneration += item.GenerationSeconds()
	}

	for v := range variantSet {
		r.Variants = append(r.Variants, v)
	}
	sort.Strings(r.Variants)
	sort.Slice(r.Pairs, func(i, j int) bool {
		if r.Pairs[i].Source != r.Pairs[j].Source {
			return r.Pairs[i].Source < r.Pairs[j].Source
		}
		return r.Pairs[i].Target < r.Pairs[j].Target
	})
	sort.Slice(r.Sources, func(i, j int) bool { return r.Sources[i].Source < r.Sources[j].Source })
	for _, s := range stats {
		r.Stats = append(r.Stats, *s)
	}
	sort.Slice(r.Stats, func(i, j int) bool { return r.Stats[i].Variant < r.Stats[j].Variant })
	return r, nil
}
