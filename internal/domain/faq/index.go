package faq

import (
	"math"
	"sort"
	"strings"
)

// distanceEpsilon snaps floating-point noise around the bounds so identical
// token bags score exactly 0.
const distanceEpsilon = 1e-9

// Match is the single nearest neighbour for a query.
type Match struct {
	Question string
	Answer   string
	Distance float64
	Found    bool
}

// Index is an immutable bag-of-words snapshot of the FAQ table.
// The questions, answers and vectors slices are parallel.
type Index struct {
	vocabulary map[string]int
	vectors    []termVector
	questions  []string
	answers    []string
}

type termVector struct {
	terms  []int
	counts []float64
	norm   float64
}

// BuildIndex fits a vocabulary over the normalized questions and vectorizes every entry.
// Entries whose question normalizes to "" keep their slot with a zero vector.
func BuildIndex(entries []Entry) (*Index, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCorpus
	}

	idx := &Index{
		vocabulary: make(map[string]int),
		vectors:    make([]termVector, len(entries)),
		questions:  make([]string, len(entries)),
		answers:    make([]string, len(entries)),
	}

	tokenized := make([][]string, len(entries))
	for i, entry := range entries {
		tokens := tokenize(entry.Question)
		tokenized[i] = tokens
		for _, token := range tokens {
			if _, ok := idx.vocabulary[token]; !ok {
				idx.vocabulary[token] = len(idx.vocabulary)
			}
		}
	}

	for i, entry := range entries {
		idx.vectors[i] = idx.vectorize(tokenized[i])
		idx.questions[i] = entry.Question
		idx.answers[i] = entry.Answer
	}
	return idx, nil
}

// Query returns the entry nearest to question by cosine distance. Among equally
// distant entries the one stored under the exact (trimmed) question text wins, so a
// written-back answer shadows an older row that normalizes the same; otherwise the
// earliest entry wins. A nil index, or a query sharing no vocabulary with the corpus, yields
// Found=false with the sentinel distance 1.0.
func (idx *Index) Query(question string) Match {
	miss := Match{Distance: 1.0}
	if idx == nil || len(idx.vectors) == 0 {
		return miss
	}
	query := idx.vectorize(tokenize(question))
	if query.norm == 0 {
		return miss
	}

	weights := make(map[int]float64, len(query.terms))
	for i, term := range query.terms {
		weights[term] = query.counts[i]
	}

	raw := strings.TrimSpace(question)
	best := -1
	bestDistance := math.Inf(1)
	bestExact := false
	for i, candidate := range idx.vectors {
		d := cosineDistance(weights, query.norm, candidate)
		exact := idx.questions[i] == raw
		if d < bestDistance || (d == bestDistance && exact && !bestExact) {
			best = i
			bestDistance = d
			bestExact = exact
		}
	}
	if best < 0 {
		return miss
	}
	return Match{
		Question: idx.questions[best],
		Answer:   idx.answers[best],
		Distance: bestDistance,
		Found:    true,
	}
}

// Len reports the number of indexed entries; a nil index has none.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.vectors)
}

// VocabularySize reports the number of distinct fitted tokens.
func (idx *Index) VocabularySize() int {
	if idx == nil {
		return 0
	}
	return len(idx.vocabulary)
}

// Entries returns a copy of the indexed rows in index order.
func (idx *Index) Entries() []Entry {
	if idx == nil {
		return nil
	}
	out := make([]Entry, len(idx.questions))
	for i := range idx.questions {
		out[i] = Entry{Question: idx.questions[i], Answer: idx.answers[i]}
	}
	return out
}

// vectorize counts in-vocabulary tokens; out-of-vocabulary tokens are dropped.
func (idx *Index) vectorize(tokens []string) termVector {
	counts := make(map[int]float64, len(tokens))
	for _, token := range tokens {
		if term, ok := idx.vocabulary[token]; ok {
			counts[term]++
		}
	}
	vec := termVector{
		terms:  make([]int, 0, len(counts)),
		counts: make([]float64, 0, len(counts)),
	}
	for term := range counts {
		vec.terms = append(vec.terms, term)
	}
	sort.Ints(vec.terms)
	var sum float64
	for _, term := range vec.terms {
		c := counts[term]
		vec.counts = append(vec.counts, c)
		sum += c * c
	}
	vec.norm = math.Sqrt(sum)
	return vec
}

func cosineDistance(query map[int]float64, queryNorm float64, candidate termVector) float64 {
	if queryNorm == 0 || candidate.norm == 0 {
		return 1.0
	}
	var dot float64
	for i, term := range candidate.terms {
		if w, ok := query[term]; ok {
			dot += w * candidate.counts[i]
		}
	}
	distance := 1 - dot/(queryNorm*candidate.norm)
	switch {
	case distance < distanceEpsilon:
		return 0
	case distance > 1-distanceEpsilon:
		return 1
	default:
		return distance
	}
}
