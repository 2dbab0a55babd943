// Package freq maps raw annotation frequency tokens to scalar weights.
//
// Annotation sources encode how often a phenotype occurs with a condition
// in several shapes: a controlled vocabulary label ("very frequent"), a
// coded band ("HP:0040283"), a patient fraction ("3/14"), a percentage or
// percentage range ("45%", "30-79%"), or nothing at all. Parse classifies
// a token into a tagged variant and Weight resolves it to a value in
// [0,1]. Parsing never fails: unknown tokens resolve to a neutral
// default.
package freq

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the recognized shape of a frequency token.
type Kind int

const (
	// Absent marks a missing or empty token. The annotation row still
	// asserts the phenotype is present, so Absent resolves to WeightPresent.
	Absent Kind = iota

	// Band marks a controlled vocabulary label or its HP-coded form.
	Band

	// Fraction marks an "n/m" patient count.
	Fraction

	// Percent marks a single percentage or a percentage range.
	Percent

	// Unknown marks anything unrecognized; resolves to WeightNeutral.
	Unknown
)

// Weight policy for tokens that carry no usable number.
const (
	// WeightPresent is the weight for annotations without a frequency
	// token: the link exists, so the phenotype is treated as present.
	WeightPresent = 1.0

	// WeightNeutral is the soft-failure default for unparseable tokens.
	WeightNeutral = 0.5
)

// bands maps the controlled frequency vocabulary to fixed weights.
// Values are the midpoints of the HPO frequency band definitions.
var bands = map[string]float64{
	"obligate":      1.00,
	"typical":       1.00,
	"very frequent": 0.90,
	"frequent":      0.60,
	"occasional":    0.15,
	"rare":          0.02,
	"very rare":     0.02,
	"excluded":      0.00,

	// Coded forms of the same bands.
	"hp:0040280": 1.00, // Obligate (100%)
	"hp:0040284": 0.90, // Very frequent (80-99%)
	"hp:0040283": 0.60, // Frequent (30-79%)
	"hp:0040282": 0.15, // Occasional (5-29%)
	"hp:0040281": 0.02, // Very rare (<5%)
	"hp:0040285": 0.00, // Excluded (0%)
}

var (
	fractionRe = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`)
	percentRe  = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*%$`)
	rangeRe    = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*%?\s*-\s*(\d+(?:\.\d+)?)\s*%$`)
)

// Token is a classified frequency token. The zero value is Absent.
type Token struct {
	Kind  Kind
	value float64
}

// Parse classifies a raw frequency token. It never returns an error;
// malformed input yields an Unknown token.
func Parse(raw string) Token {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Token{Kind: Absent}
	}

	if w, ok := bands[s]; ok {
		return Token{Kind: Band, value: w}
	}

	if m := fractionRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)
		d, _ := strconv.ParseFloat(m[2], 64)
		if d == 0 {
			return Token{Kind: Absent}
		}
		return Token{Kind: Fraction, value: clamp01(n / d)}
	}

	if m := rangeRe.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		return Token{Kind: Percent, value: clamp01((lo + hi) / 2 / 100)}
	}

	if m := percentRe.FindStringSubmatch(s); m != nil {
		p, _ := strconv.ParseFloat(m[1], 64)
		return Token{Kind: Percent, value: clamp01(p / 100)}
	}

	return Token{Kind: Unknown}
}

// Weight resolves the token to a scalar in [0,1].
func (t Token) Weight() float64 {
	switch t.Kind {
	case Absent:
		return WeightPresent
	case Unknown:
		return WeightNeutral
	default:
		return t.value
	}
}

// Weight is shorthand for Parse(raw).Weight().
func Weight(raw string) float64 {
	return Parse(raw).Weight()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
