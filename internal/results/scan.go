package results

// Expected enumerates every (source, target, variant) combination for the
// given image sets, in run order: sources outermost, then targets, then
// variants, matching the order batches have always run in.
func Expected(sources, targets, variants []string) []Combo {
	combos := make([]Combo, 0, len(sources)*len(targets)*len(variants))
	for _, src := range sources {
		for _, tgt := range targets {
			for _, v := range variants {
				combos = append(combos, Combo{Source: src, Target: tgt, Variant: v})
			}
		}
	}
	return combos
}

// Missing returns the expected combinations that have no result image yet,
// preserving the expected order. This is the whole of resume: set
// subtraction between the plan and the directory listing.
func (s *Store) Missing(expected []Combo) ([]Combo, error) {
	existing, err := s.Existing()
	if err != nil {
		return nil, err
	}
	done := make(map[Combo]struct{}, len(existing))
	for _, c := range existing {
		done[c] = struct{}{}
	}

	var missing []Combo
	for _, c := range expected {
		if _, ok := done[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing, nil
}
