package fuzzy

// Measure is a string distance in [0, 1] where 0 means identical.
type Measure func(a, b []rune) float64

// Tolerance is the largest mean distance still accepted as a match (exclusive).
type Tolerance float64

const (
	Strong Tolerance = 0.25
	Normal Tolerance = 0.5
	Weak   Tolerance = 0.75
)

// DefaultMeasures combines character overlap with the two longest-common measures.
var DefaultMeasures = []Measure{OverlapDistance, SubsequenceDistance, SubstringDistance}

// OverlapDistance is one minus the overlap coefficient: distinct shared runes over the
// length of the shorter input.
func OverlapDistance(a, b []rune) float64 {
	shortest := min(len(a), len(b))
	if shortest == 0 {
		return 1
	}

	inA := make(map[rune]struct{}, len(a))
	for _, r := range a {
		inA[r] = struct{}{}
	}
	shared := make(map[rune]struct{})
	for _, r := range b {
		if _, ok := inA[r]; ok {
			shared[r] = struct{}{}
		}
	}
	return 1 - float64(len(shared))/float64(shortest)
}

// SubsequenceDistance is one minus the longest common subsequence length over the
// length of the shorter input.
func SubsequenceDistance(a, b []rune) float64 {
	shortest := min(len(a), len(b))
	if shortest == 0 {
		return 1
	}
	return 1 - float64(longestCommonSubsequence(a, b))/float64(shortest)
}

// SubstringDistance is one minus the longest common contiguous run over the length
// of the shorter input.
func SubstringDistance(a, b []rune) float64 {
	shortest := min(len(a), len(b))
	if shortest == 0 {
		return 1
	}
	return 1 - float64(longestCommonSubstring(a, b))/float64(shortest)
}

func longestCommonSubsequence(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func longestCommonSubstring(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				best = max(best, curr[j])
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return best
}

// Distance averages the given measures over the case-folded, normalized forms of a and b.
// Empty input on either side is maximally distant.
func Distance(a, b string, measures ...Measure) float64 {
	if len(measures) == 0 {
		measures = DefaultMeasures
	}

	ra, rb := []rune(matchForm(a)), []rune(matchForm(b))
	if len(ra) == 0 || len(rb) == 0 {
		return 1
	}

	var total float64
	for _, m := range measures {
		total += m(ra, rb)
	}
	return total / float64(len(measures))
}

// Similarity is 1 - [Distance].
func Similarity(a, b string, measures ...Measure) float64 {
	return 1 - Distance(a, b, measures...)
}

// Approximately reports whether a and b are within tol of each other.
func Approximately(a, b string, tol Tolerance, measures ...Measure) bool {
	return Distance(a, b, measures...) < float64(tol)
}
