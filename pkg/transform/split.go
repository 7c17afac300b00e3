package transform

import (
	"math/rand"
	"sort"
	"strings"
)

const stratifyBuckets = 10

// SplitOptions control the deterministic train/val/test partition.
type SplitOptions struct {
	TrainSize   float64
	ValSize     float64
	TestSize    float64
	RandomState int64
	Stratify    bool
}

// Split partitions records into train/val/test deterministically for a
// given seed. With Stratify set, records are bucketed by target token
// length so each split sees a similar length distribution.
func Split(records [][]string, targetCol int, opts SplitOptions) (train, val, test [][]string) {
	if opts.Stratify {
		groups := bucketByTargetLength(records, targetCol)
		for _, group := range groups {
			gtrain, gval, gtest := shuffleSplit(group, opts)
			train = append(train, gtrain...)
			val = append(val, gval...)
			test = append(test, gtest...)
		}
		return train, val, test
	}
	return shuffleSplit(records, opts)
}

func shuffleSplit(records [][]string, opts SplitOptions) (train, val, test [][]string) {
	shuffled := make([][]string, len(records))
	copy(shuffled, records)
	rng := rand.New(rand.NewSource(opts.RandomState))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := len(shuffled)
	ntrain := int(float64(n) * opts.TrainSize)
	nval := int(float64(n) * opts.ValSize)
	if ntrain+nval > n {
		nval = n - ntrain
	}
	return shuffled[:ntrain], shuffled[ntrain : ntrain+nval], shuffled[ntrain+nval:]
}

// bucketByTargetLength groups records into decile buckets of target
// token length, preserving input order within each bucket.
func bucketByTargetLength(records [][]string, targetCol int) [][][]string {
	lengths := make([]int, len(records))
	for i, rec := range records {
		lengths[i] = tokenCount(rec[targetCol])
	}
	sorted := append([]int(nil), lengths...)
	sort.Ints(sorted)

	bounds := make([]int, stratifyBuckets-1)
	for i := range bounds {
		bounds[i] = sorted[(i+1)*len(sorted)/stratifyBuckets]
	}
	groups := make([][][]string, stratifyBuckets)
	for i, rec := range records {
		groups[bucketOf(lengths[i], bounds)] = append(groups[bucketOf(lengths[i], bounds)], rec)
	}
	result := make([][][]string, 0, stratifyBuckets)
	for _, group := range groups {
		if len(group) > 0 {
			result = append(result, group)
		}
	}
	return result
}

func bucketOf(length int, bounds []int) int {
	for i, bound := range bounds {
		if length < bound {
			return i
		}
	}
	return len(bounds)
}

func tokenCount(s string) int {
	return len(strings.Fields(s))
}

// truncateTokens keeps at most max whitespace tokens of s.
func truncateTokens(s string, max int) string {
	fields := strings.Fields(s)
	if len(fields) <= max {
		return s
	}
	return strings.Join(fields[:max], " ")
}
