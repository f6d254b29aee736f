package scores

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Action identifies the corrective action attached to a segment.
type Action string

const (
	ActionSkip Action = "skip"
	ActionMute Action = "mute"
)

// ParseAction normalizes an action string from the wire format.
func ParseAction(value string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(value))) {
	case ActionSkip:
		return ActionSkip, nil
	case ActionMute:
		return ActionMute, nil
	default:
		return "", fmt.Errorf("unknown segment action %q", value)
	}
}

// Segment is a time range on a media item annotated with raw per-category
// model confidence scores. Segments are immutable once stored; only whole
// records are ever replaced.
type Segment struct {
	Start     float64            `json:"start"`
	End       float64            `json:"end"`
	RawScores map[string]float64 `json:"rawScores"`
	Action    Action             `json:"action"`
	Source    string             `json:"source"`
}

// Confidence is the derived overall confidence: the maximum raw score.
func (s Segment) Confidence() float64 {
	var max float64
	for _, score := range s.RawScores {
		if score > max {
			max = score
		}
	}
	return max
}

// Contains reports whether position t falls inside the segment. Both bounds
// are inclusive: a position exactly on a boundary belongs to the ending and
// any newly starting segment at once, and the caller resolves the tie.
func (s Segment) Contains(t float64) bool {
	return s.Start <= t && t <= s.End
}

// Same reports whether two segments describe the same stored range. Records
// are replaced wholesale, so identity is positional rather than pointer-based.
func (s Segment) Same(other Segment) bool {
	return s.Start == other.Start && s.End == other.End && s.Action == other.Action
}

// Validate checks wire-level invariants for a single segment.
func (s Segment) Validate() error {
	if s.Start < 0 {
		return fmt.Errorf("segment start %v is negative", s.Start)
	}
	if s.Start >= s.End {
		return fmt.Errorf("segment start %v is not before end %v", s.Start, s.End)
	}
	if s.Action != ActionSkip && s.Action != ActionMute {
		return fmt.Errorf("unknown segment action %q", s.Action)
	}
	for key, score := range s.RawScores {
		if score < 0 || score > 1 {
			return fmt.Errorf("raw score %q = %v outside [0,1]", key, score)
		}
	}
	return nil
}

// Record is the full set of scored segments for one media item. Records are
// keyed uniquely by MediaID and replaced wholesale on update; segments are
// never merged across versions. Segment order is not significant and ranges
// may overlap.
type Record struct {
	MediaID     string    `json:"mediaId"`
	Version     int       `json:"version"`
	Segments    []Segment `json:"segments"`
	CreatedAt   time.Time `json:"createdAt"`
	ContentHash string    `json:"contentHash,omitempty"`
}

// Validate checks wire-level invariants for a record.
func (r *Record) Validate() error {
	if r == nil {
		return errors.New("record is nil")
	}
	if strings.TrimSpace(r.MediaID) == "" {
		return errors.New("record media id is required")
	}
	if r.Version < 0 {
		return fmt.Errorf("record version %d is negative", r.Version)
	}
	for i, seg := range r.Segments {
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return nil
}

// ActiveSegments returns every segment whose range contains t, inclusive of
// both bounds. Overlapping membership is returned as-is; disambiguation is
// the caller's job.
func (r *Record) ActiveSegments(t float64) []Segment {
	if r == nil {
		return nil
	}
	var active []Segment
	for _, seg := range r.Segments {
		if seg.Contains(t) {
			active = append(active, seg)
		}
	}
	return active
}

// NextBoundary returns the smallest segment start strictly after t, and
// false when no segment starts after t.
func (r *Record) NextBoundary(t float64) (float64, bool) {
	if r == nil {
		return 0, false
	}
	var (
		next  float64
		found bool
	)
	for _, seg := range r.Segments {
		if seg.Start <= t {
			continue
		}
		if !found || seg.Start < next {
			next = seg.Start
			found = true
		}
	}
	return next, found
}
