package termgraph

import (
	"math"
	"strings"

	"github.com/abekenov/termgraph/terminology"
)

// Weight formula shares.
const (
	freqShare = 0.4
	pmiShare  = 0.3
	distShare = 0.3

	// minCombinedWeight keeps every observed relation traversable.
	minCombinedWeight = 0.1

	// crossBlockFloor is the distance weight for pairs that co-occur
	// only across different blocks, never within one.
	crossBlockFloor = 0.3

	// distanceScale is the token-distance decay constant.
	distanceScale = 50.0
)

type pairKey struct {
	a, b string
}

func makePair(a, b string) pairKey {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// WeightCalculator quantifies how strongly two concepts are related from
// their co-occurrence across processed blocks. Feed it with Observe, then
// query CombinedWeight for edge confidences.
type WeightCalculator struct {
	idx *terminology.Index

	// positions: entity -> block index -> token positions in that block.
	positions map[string]map[int][]int
	// blocks: entity -> set of blocks containing it.
	blocks map[string]map[int]struct{}
	// pairs: unordered entity pair -> number of blocks where both occur.
	pairs   map[pairKey]int
	maxPair int
}

// NewWeightCalculator returns an empty calculator over the given index.
func NewWeightCalculator(idx *terminology.Index) *WeightCalculator {
	return &WeightCalculator{
		idx:       idx,
		positions: make(map[string]map[int][]int),
		blocks:    make(map[string]map[int]struct{}),
		pairs:     make(map[pairKey]int),
	}
}

// Observe records the block for every entity in the list and counts a
// co-occurrence for every unordered pair of distinct entities. Block
// membership and pair counts come from the validated entity list itself;
// token positions are recorded only when the consecutive-token matcher
// locates the entity, so a positionless entity still co-occurs but
// contributes no distance.
func (w *WeightCalculator) Observe(blockText string, entities []string, blockIndex int) {
	stream := w.idx.LemmaStream(blockText)

	seen := make(map[string]struct{}, len(entities))
	var keys []string
	for _, e := range entities {
		key := strings.ToLower(e)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)

		if w.blocks[key] == nil {
			w.blocks[key] = make(map[int]struct{})
		}
		w.blocks[key][blockIndex] = struct{}{}

		if pos := tokenPositions(stream, w.idx.LemmaPhrase(key)); len(pos) > 0 {
			if w.positions[key] == nil {
				w.positions[key] = make(map[int][]int)
			}
			w.positions[key][blockIndex] = pos
		}
	}

	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			k := makePair(keys[i], keys[j])
			w.pairs[k]++
			if w.pairs[k] > w.maxPair {
				w.maxPair = w.pairs[k]
			}
		}
	}
}

// tokenPositions returns the stream indices where the lemma starts.
// Multi-word lemmas match consecutive tokens.
func tokenPositions(stream []string, lemma string) []int {
	words := strings.Split(lemma, " ")
	var out []int
	for i := 0; i+len(words) <= len(stream); i++ {
		match := true
		for j, w := range words {
			if stream[i+j] != w {
				match = false
				break
			}
		}
		if match {
			out = append(out, i)
		}
	}
	return out
}

// PMI returns pointwise mutual information between the two entities,
// squashed into [0,1] with a logistic curve. Zero when the pair never
// co-occurs or either marginal is zero.
func (w *WeightCalculator) PMI(a, b string, totalBlocks int) float64 {
	if totalBlocks <= 0 {
		return 0
	}
	cooc := w.pairs[makePair(a, b)]
	na := len(w.blocks[strings.ToLower(a)])
	nb := len(w.blocks[strings.ToLower(b)])
	if cooc == 0 || na == 0 || nb == 0 {
		return 0
	}
	pab := float64(cooc) / float64(totalBlocks)
	pa := float64(na) / float64(totalBlocks)
	pb := float64(nb) / float64(totalBlocks)
	pmi := math.Log2(pab / (pa * pb))
	return 1.0 / (1.0 + math.Exp(-pmi/2.0))
}

// DistanceWeight returns exponential decay over the average token
// distance across every same-block occurrence pair of the two entities.
// Pairs that only ever co-occur across different blocks get the
// cross-block floor; a pair with no recorded positions gets zero.
func (w *WeightCalculator) DistanceWeight(a, b string) float64 {
	pa := w.positions[strings.ToLower(a)]
	pb := w.positions[strings.ToLower(b)]
	if len(pa) == 0 || len(pb) == 0 {
		return 0
	}

	var sum float64
	var count int
	for block, posA := range pa {
		posB, ok := pb[block]
		if !ok {
			continue
		}
		for _, x := range posA {
			for _, y := range posB {
				d := x - y
				if d < 0 {
					d = -d
				}
				sum += float64(d)
				count++
			}
		}
	}
	if count == 0 {
		return crossBlockFloor
	}
	return math.Exp(-(sum / float64(count)) / distanceScale)
}

// CombinedWeight blends frequency, PMI, and distance into one edge
// weight in [0.1, 1.0], rounded to three decimals.
func (w *WeightCalculator) CombinedWeight(a, b string, totalBlocks int) float64 {
	freq := 0.0
	if w.maxPair > 0 {
		freq = float64(w.pairs[makePair(a, b)]) / float64(w.maxPair)
	}
	weight := freqShare*freq + pmiShare*w.PMI(a, b, totalBlocks) + distShare*w.DistanceWeight(a, b)
	if weight < minCombinedWeight {
		weight = minCombinedWeight
	}
	if weight > 1.0 {
		weight = 1.0
	}
	return math.Round(weight*1000) / 1000
}

// CoOccurrence returns how many blocks contained both entities.
func (w *WeightCalculator) CoOccurrence(a, b string) int {
	return w.pairs[makePair(a, b)]
}
