package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"media-review/internal/filesystem"
)

// PatternScheme prefixes synthetic media that is generated rather than read.
const PatternScheme = "pattern:"

// Parse decodes a timeline document, validates it and lays it out.
func Parse(r io.Reader) (*Timeline, error) {
	var t Timeline
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidTimeline, err)
	}
	if err := t.build(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Load reads the timeline document at path. Relative media paths are made
// relative to the directory of the document.
func Load(path string) (*Timeline, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("open timeline %s: %w", path, err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	t.resolvePaths(filepath.Dir(path))
	return t, nil
}

func (t *Timeline) resolvePaths(dir string) {
	for ti := range t.Tracks {
		items := t.Tracks[ti].Items
		for ii := range items {
			p := items[ii].MediaPath
			if p == "" || strings.HasPrefix(p, PatternScheme) || filepath.IsAbs(p) {
				continue
			}
			items[ii].MediaPath = filepath.Join(dir, p)
		}
	}
}

// Validate checks the structural rules of a timeline. Errors wrap
// ErrInvalidTimeline.
func (t *Timeline) Validate() error {
	if t.Rate <= 0 || math.IsNaN(t.Rate) || math.IsInf(t.Rate, 0) {
		return fmt.Errorf("%w: rate must be positive, got %v", ErrInvalidTimeline, t.Rate)
	}
	if len(t.Tracks) == 0 {
		return fmt.Errorf("%w: no tracks", ErrInvalidTimeline)
	}

	hasDuration := false
	for ti, track := range t.Tracks {
		if track.Kind != Video && track.Kind != Audio {
			return fmt.Errorf("%w: track %d: unknown kind %q", ErrInvalidTimeline, ti, track.Kind)
		}
		for ii, it := range track.Items {
			if err := validateItem(track.Items, ii); err != nil {
				return fmt.Errorf("%w: track %d item %d: %v", ErrInvalidTimeline, ti, ii, err)
			}
			if it.Kind != TransitionItem && it.Duration().Value > 0 {
				hasDuration = true
			}
		}
	}
	if !hasDuration {
		return fmt.Errorf("%w: empty timeline", ErrInvalidTimeline)
	}
	return nil
}

func validateItem(items []Item, i int) error {
	it := items[i]
	switch it.Kind {
	case ClipItem:
		if it.MediaPath == "" {
			return fmt.Errorf("clip %q has no media path", it.Name)
		}
		fallthrough
	case GapItem:
		if it.SourceRange.Duration.Value < 0 {
			return fmt.Errorf("negative duration %v", it.SourceRange.Duration)
		}
		if !it.SourceRange.Start.IsValid() {
			return fmt.Errorf("invalid source start %v", it.SourceRange.Start)
		}
	case TransitionItem:
		if it.InOffset.Value < 0 || it.OutOffset.Value < 0 {
			return errors.New("negative transition offset")
		}
		if i == 0 || i == len(items)-1 {
			return fmt.Errorf("transition %q at track edge", it.Name)
		}
		prev, next := items[i-1], items[i+1]
		if prev.Kind == TransitionItem || next.Kind == TransitionItem {
			return errors.New("adjacent transitions")
		}
		if it.InOffset.After(prev.Duration()) || it.OutOffset.After(next.Duration()) {
			return fmt.Errorf("transition %q is longer than its neighbours", it.Name)
		}
	default:
		return fmt.Errorf("unknown item kind %q", it.Kind)
	}
	return nil
}
