package report

import "math"

// Transform maps one aggregated row to another of the same length.
type Transform func(row []Count) []Count

// Registry maps transform names to implementations. Names that are not in
// the registry are skipped by the compiler, not treated as errors.
type Registry map[string]Transform

// DefaultRegistry returns a fresh registry with the built-in transforms.
func DefaultRegistry() Registry {
	return Registry{
		"normal":     Identity,
		"percentage": Percentage,
	}
}

// Identity passes the row through unchanged, unknown markers included.
func Identity(row []Count) []Count {
	return append([]Count(nil), row...)
}

// Percentage min-max normalizes the row onto 0..100.
//
// The minimum is taken over positive values only, the maximum over all known
// values; each positive value maps to floor((v-min)/(max-min)*100) and every
// other cell (zero, negative, unknown) maps to 0. When the row has no
// positive value, or all positive values are equal, every cell is 0.
func Percentage(row []Count) []Count {
	out := make([]Count, len(row))
	for i := range out {
		out[i] = Known(0)
	}

	minV, maxV := int64(math.MaxInt64), int64(math.MinInt64)
	positives := 0
	for _, c := range row {
		if !c.Known {
			continue
		}
		if c.Value > maxV {
			maxV = c.Value
		}
		if c.Value > 0 {
			positives++
			if c.Value < minV {
				minV = c.Value
			}
		}
	}
	if positives == 0 || maxV == minV {
		return out
	}

	span := float64(maxV - minV)
	for i, c := range row {
		if c.Known && c.Value > 0 {
			out[i] = Known(int64(math.Floor(float64(c.Value-minV) / span * 100)))
		}
	}
	return out
}
