package shell

import (
	"context"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/gdamore/tcell/v2"
	"github.com/sahilm/fuzzy"

	"github.com/quirelabs/quire/internal/contents"
)

// FilterConfig bundles tuning parameters for palette filtering.
type FilterConfig struct {
	MinCoverage float64 // minimal share of the query that must match
	MaxSpread   int     // maximal distance between first and last match index
	MaxResults  int     // upper limit of returned results
}

// DefaultFilterConfig is tuned for file paths: tolerant spread so
// directory prefixes do not defeat name matches, a short result list.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{MinCoverage: 0.5, MaxSpread: 32, MaxResults: 50}
}

// palette is the ctrl-p open overlay: a query line over a filtered list of
// every path the backend can list.
type palette struct {
	input   []rune
	items   []string
	matches []int
	sel     int
}

// openPalette lists the backend and shows the palette. Listing failures
// surface as a status message instead of an overlay.
func (s *Shell) openPalette(ctx context.Context) {
	items, err := s.pathIndex(ctx)
	if err != nil {
		s.logger.Error("list contents: %v", err)
		s.setMessage("list contents: " + err.Error())
		return
	}
	p := &palette{items: items}
	p.refilter()
	s.palette = p
}

func (s *Shell) paletteKey(ctx context.Context, ev *tcell.EventKey) {
	p := s.palette
	switch ev.Key() {
	case tcell.KeyEsc, tcell.KeyCtrlP:
		s.palette = nil
	case tcell.KeyEnter:
		s.palette = nil
		if p.sel >= 0 && p.sel < len(p.matches) {
			path := p.items[p.matches[p.sel]]
			if err := s.openPath(ctx, path); err != nil {
				s.setMessage("open " + path + ": " + err.Error())
			}
		}
	case tcell.KeyUp:
		if p.sel > 0 {
			p.sel--
		}
	case tcell.KeyDown:
		if p.sel < len(p.matches)-1 {
			p.sel++
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(p.input) > 0 {
			p.input = p.input[:len(p.input)-1]
			p.refilter()
		}
	case tcell.KeyCtrlU:
		p.input = p.input[:0]
		p.refilter()
	case tcell.KeyRune:
		p.input = append(p.input, ev.Rune())
		p.refilter()
	}
}

func (p *palette) refilter() {
	p.matches = filterPaths(string(p.input), p.items, DefaultFilterConfig())
	p.sel = 0
}

// pathIndex walks the backend depth first and returns every file path,
// sorted. Directories themselves are not openable and stay out.
func (s *Shell) pathIndex(ctx context.Context) ([]string, error) {
	var out []string
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := s.manager.List(ctx, dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Type == contents.TypeDirectory {
				if err := walk(e.Path); err != nil {
					return err
				}
				continue
			}
			out = append(out, e.Path)
		}
		return nil
	}
	if err := walk(""); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// filterPaths returns indices into paths matching query, best match first.
// An empty query keeps everything up to cfg.MaxResults. Fuzzy matches are
// pruned by coverage and spread; if pruning drops everything, the raw
// fuzzy ranking wins over an empty list.
func filterPaths(query string, paths []string, cfg FilterConfig) []int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		idx := make([]int, 0, min(cfg.MaxResults, len(paths)))
		for i := range paths {
			if len(idx) >= cfg.MaxResults {
				break
			}
			idx = append(idx, i)
		}
		return idx
	}

	lowered := make([]string, len(paths))
	for i, p := range paths {
		lowered[i] = strings.ToLower(p)
	}
	matches := fuzzy.Find(q, lowered)

	pruned := make([]int, 0, len(matches))
	for _, mt := range matches {
		if matchCoverage(q, mt) < cfg.MinCoverage {
			continue
		}
		if matchSpread(mt) > cfg.MaxSpread {
			continue
		}
		pruned = append(pruned, mt.Index)
		if len(pruned) >= cfg.MaxResults {
			break
		}
	}
	if len(pruned) == 0 {
		for i := 0; i < len(matches) && i < cfg.MaxResults; i++ {
			pruned = append(pruned, matches[i].Index)
		}
	}
	return pruned
}

// matchCoverage returns the ratio of matched characters to the query length.
func matchCoverage(q string, m fuzzy.Match) float64 {
	if len(q) == 0 {
		return 1
	}
	return float64(len(m.MatchedIndexes)) / float64(len(q))
}

// matchSpread returns the distance between the first and last matched index.
func matchSpread(m fuzzy.Match) int {
	if len(m.MatchedIndexes) == 0 {
		return 0
	}
	return m.MatchedIndexes[len(m.MatchedIndexes)-1] - m.MatchedIndexes[0]
}

// suggest returns the known path closest to miss when the edit distance is
// small enough to be a plausible typo.
func suggest(paths []string, miss string) (string, bool) {
	const maxRatio = 0.4
	target := strings.ToLower(miss)

	best := ""
	bestRatio := maxRatio
	for _, p := range paths {
		cand := strings.ToLower(p)
		maxlen := max(len(target), len(cand))
		if maxlen == 0 {
			continue
		}
		dist := levenshtein.ComputeDistance(target, cand)
		if ratio := float64(dist) / float64(maxlen); ratio < bestRatio {
			best, bestRatio = p, ratio
		}
	}
	return best, best != ""
}
