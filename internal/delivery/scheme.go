package delivery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UnknownBucket labels records without a usable duration.
const UnknownBucket = "Unknown"

// BucketScheme partitions [0, inf) hours. Bounds are the ascending upper
// bounds of every bucket but the last, which is open-ended; Labels has one
// more entry than Bounds.
type BucketScheme struct {
	Name   string
	Bounds []float64
	Labels []string
}

// Coarse is the 0-2 .. 48+ hour scheme.
func Coarse() BucketScheme {
	return NewScheme("coarse", []float64{2, 4, 6, 12, 24, 48})
}

// Fine is the hourly 0-1 .. 12+ scheme.
func Fine() BucketScheme {
	return NewScheme("fine", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
}

// NewScheme derives "lo-hiHrs" labels from bounds, ending with "N+Hrs".
func NewScheme(name string, bounds []float64) BucketScheme {
	labels := make([]string, 0, len(bounds)+1)
	lower := 0.0
	for _, upper := range bounds {
		labels = append(labels, fmt.Sprintf("%s-%sHrs", formatHours(lower), formatHours(upper)))
		lower = upper
	}
	labels = append(labels, fmt.Sprintf("%s+Hrs", formatHours(lower)))
	return BucketScheme{Name: name, Bounds: append([]float64{}, bounds...), Labels: labels}
}

// SchemeByName resolves "coarse", "fine", or "custom". A custom scheme needs
// bounds and takes optional labels, one more than bounds; without labels
// they are derived as in NewScheme.
func SchemeByName(name string, bounds []float64, labels []string) (BucketScheme, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if len(labels) > 0 && key != "custom" {
		return BucketScheme{}, fmt.Errorf("duration scheme %s: labels are only configurable for custom", name)
	}
	switch key {
	case "", "coarse":
		return Coarse(), nil
	case "fine":
		return Fine(), nil
	case "custom":
		scheme := NewScheme("custom", bounds)
		if len(labels) > 0 {
			scheme.Labels = make([]string, len(labels))
			for i, l := range labels {
				scheme.Labels[i] = strings.TrimSpace(l)
			}
		}
		if err := scheme.Validate(); err != nil {
			return BucketScheme{}, err
		}
		return scheme, nil
	default:
		return BucketScheme{}, fmt.Errorf("unknown duration scheme: %s", name)
	}
}

// Validate checks that bounds are positive and strictly ascending and that
// there is one distinct, non-empty label per bucket.
func (s BucketScheme) Validate() error {
	if len(s.Bounds) == 0 {
		return errors.New("duration scheme needs at least one bound")
	}
	if len(s.Labels) != len(s.Bounds)+1 {
		return fmt.Errorf("duration scheme %s: %d labels for %d bounds", s.Name, len(s.Labels), len(s.Bounds))
	}
	prev := 0.0
	for _, b := range s.Bounds {
		if b <= prev {
			return fmt.Errorf("duration scheme %s: bounds must be positive and ascending", s.Name)
		}
		prev = b
	}
	seen := make(map[string]bool, len(s.Labels))
	for _, l := range s.Labels {
		if l == "" || l == UnknownBucket || seen[l] {
			return fmt.Errorf("duration scheme %s: labels must be non-empty and distinct, got %q", s.Name, l)
		}
		seen[l] = true
	}
	return nil
}

// Bucket returns the first label whose upper bound is >= hours, or the
// open-ended label. A boundary value belongs to the lower bucket.
func (s BucketScheme) Bucket(hours float64) string {
	for i, upper := range s.Bounds {
		if hours <= upper {
			return s.Labels[i]
		}
	}
	return s.Labels[len(s.Labels)-1]
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
