// Package similarity scores two documents against each other with TF-IDF
// weighting and cosine similarity.
//
// The vocabulary is fitted on exactly the documents passed in, so scores from
// different document pairs are not comparable.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ErrVocabularyTooLarge is returned when a term cap is set and the fitted vocabulary exceeds it.
var ErrVocabularyTooLarge = errors.New("vocabulary too large")

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Matrix holds one L2-normalized TF-IDF row per document over a shared vocabulary.
type Matrix struct {
	Vocabulary []string
	Rows       [][]float64
}

// Vectorizer fits a vocabulary and TF-IDF weights per call. It holds no state between calls.
type Vectorizer struct {
	// MaxTerms caps the vocabulary size; zero means unlimited.
	MaxTerms int
}

// Tokenize lowercases text and returns its terms with English stop words removed.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	terms := raw[:0]
	for _, t := range raw {
		if _, stop := englishStopWords[t]; stop {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

// FitTransform builds the vocabulary of docs and returns their TF-IDF rows.
// tf is the raw count, idf = ln((1+n)/(1+df)) + 1, and every row is scaled to unit length.
func (v Vectorizer) FitTransform(ctx context.Context, docs ...string) (*Matrix, error) {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		counts[i] = make(map[string]int)
		for _, term := range Tokenize(doc) {
			counts[i][term]++
		}
		for term := range counts[i] {
			df[term]++
		}
	}

	if v.MaxTerms > 0 && len(df) > v.MaxTerms {
		return nil, fmt.Errorf("%w: %d terms, limit %d", ErrVocabularyTooLarge, len(df), v.MaxTerms)
	}

	vocab := make([]string, 0, len(df))
	for term := range df {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)

	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for j, term := range vocab {
		idf[j] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	rows := make([][]float64, len(docs))
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := make([]float64, len(vocab))
		for j, term := range vocab {
			row[j] = float64(counts[i][term]) * idf[j]
		}
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
		rows[i] = row
	}

	return &Matrix{Vocabulary: vocab, Rows: rows}, nil
}

// Cosine returns the cosine similarity of a and b clamped to [0, 1].
// It is 0 when either vector has zero magnitude or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	sim := floats.Dot(a, b) / (na * nb)
	return math.Max(0, math.Min(1, sim))
}

// Percent maps a similarity in [0, 1] to an integer percentage, rounding half away from zero.
func Percent(sim float64) int {
	return int(math.Round(sim * 100))
}

// Score vectorizes the pair and returns their similarity as a percentage.
func (v Vectorizer) Score(ctx context.Context, a, b string) (int, error) {
	m, err := v.FitTransform(ctx, a, b)
	if err != nil {
		return 0, err
	}
	return Percent(Cosine(m.Rows[0], m.Rows[1])), nil
}
