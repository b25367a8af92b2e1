package counters

import (
	"time"

	"github.com/linkval/nvldiag/pkg/generation"
	"github.com/linkval/nvldiag/pkg/linkerr"
	"github.com/linkval/nvldiag/pkg/model"
)

// DefaultThreshold returns the generation's default threshold of kind.
// Rate-based thresholds are failures per transferred bit; count-based
// thresholds are absolute.
func (s *Store) DefaultThreshold(kind model.ErrorKind, rateBased bool) (float64, error) {
	return DefaultThreshold(s.profile, kind, rateBased)
}

// DefaultThreshold returns the default threshold of kind for profile.
func DefaultThreshold(p *generation.Profile, kind model.ErrorKind, rateBased bool) (float64, error) {
	const op = "DefaultThreshold"

	th, ok := p.Threshold(kind)
	switch {
	case !ok:
		return 0, linkerr.New(linkerr.Unsupported, op, "no threshold for %s on %s", kind, p.Tag()).WithValue(kind)
	case rateBased && th.Rate == 0:
		return 0, linkerr.New(linkerr.Unsupported, op, "no rate threshold for %s on %s", kind, p.Tag()).WithValue(kind)
	case rateBased:
		return th.Rate, nil
	case th.Count == 0:
		return 0, linkerr.New(linkerr.Unsupported, op, "no count threshold for %s on %s", kind, p.Tag()).WithValue(kind)
	default:
		return float64(th.Count), nil
	}
}

// Violation is a counter above its default threshold.
type Violation struct {
	Link      model.LinkID         `json:"link"`
	Kind      model.ErrorKind      `json:"kind"`
	Count     uint64               `json:"count"`
	Rate      float64              `json:"rate,omitempty"`
	Threshold generation.Threshold `json:"threshold"`

	CountExceeded bool `json:"count_exceeded,omitempty"`
	RateExceeded  bool `json:"rate_exceeded,omitempty"`
}

// CheckThresholds classifies counts accumulated on link over elapsed
// against the default thresholds. The error rate is count divided by the
// bits transferred in elapsed. Kinds without a threshold are skipped.
func (s *Store) CheckThresholds(link model.Link, counts model.CounterSet, elapsed time.Duration) []Violation {
	return CheckThresholds(s.profile, link, counts, elapsed)
}

// CheckThresholds is the profile-level form of Store.CheckThresholds.
func CheckThresholds(p *generation.Profile, link model.Link, counts model.CounterSet, elapsed time.Duration) []Violation {
	bits := link.BitsPerSecond() * elapsed.Seconds()

	var out []Violation
	for _, kind := range counts.Kinds() {
		th, ok := p.Threshold(kind)
		if !ok {
			continue
		}
		c := counts[kind]
		v := Violation{Link: link.ID, Kind: kind, Count: c.Count, Threshold: th}
		if th.Count > 0 && c.Count > th.Count {
			v.CountExceeded = true
		}
		if bits > 0 {
			v.Rate = float64(c.Count) / bits
			if th.Rate > 0 && v.Rate > th.Rate {
				v.RateExceeded = true
			}
		}
		if v.CountExceeded || v.RateExceeded {
			out = append(out, v)
		}
	}
	return out
}
