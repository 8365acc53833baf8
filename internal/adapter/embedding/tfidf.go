package embedding

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"vecbench/internal/domain"
)

// TFIDFEmbedder is a TF-IDF embedder fit on the benchmark corpus at
// construction. It runs entirely in-process, which makes it the "real"
// model that never needs a download, and it is deterministic once fit.
type TFIDFEmbedder struct {
	profile    domain.ModelProfile
	vocabulary map[string]int // term -> vector index
	idf        []float64
}

// NewTFIDFEmbedder fits a TF-IDF vocabulary on the corpus. The vocabulary
// is capped at the registry dimension; vectors are zero-padded when the
// corpus has fewer distinct terms.
func NewTFIDFEmbedder(profile domain.ModelProfile, corpus []string) (*TFIDFEmbedder, error) {
	if len(corpus) == 0 {
		return nil, domain.WrapError("tfidf.New", domain.ErrInvalidInput)
	}
	profile.Kind = domain.KindReal

	// Document frequency per term
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, term := range tokenize(doc) {
			if !seen[term] {
				df[term]++
				seen[term] = true
			}
		}
	}

	type termFreq struct {
		term string
		freq int
	}
	tf := make([]termFreq, 0, len(df))
	for term, freq := range df {
		tf = append(tf, termFreq{term, freq})
	}
	// Frequency descending, term ascending on ties so the fit is stable.
	sort.Slice(tf, func(i, j int) bool {
		if tf[i].freq != tf[j].freq {
			return tf[i].freq > tf[j].freq
		}
		return tf[i].term < tf[j].term
	})
	if len(tf) > profile.Dim {
		tf = tf[:profile.Dim]
	}

	e := &TFIDFEmbedder{
		profile:    profile,
		vocabulary: make(map[string]int, len(tf)),
		idf:        make([]float64, len(tf)),
	}
	n := float64(len(corpus))
	for i, t := range tf {
		e.vocabulary[t.term] = i
		e.idf[i] = math.Log(n / float64(t.freq))
	}

	return e, nil
}

func (e *TFIDFEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, domain.WrapError("tfidf.Embed", domain.ErrInvalidInput)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vec := make([]float32, e.profile.Dim)
		terms := tokenize(text)

		counts := make(map[string]int)
		for _, t := range terms {
			counts[t]++
		}

		for term, count := range counts {
			if idx, ok := e.vocabulary[term]; ok {
				tfVal := float64(count) / float64(len(terms))
				vec[idx] = float32(tfVal * e.idf[idx])
			}
		}

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vec {
				vec[j] = float32(float64(vec[j]) / norm)
			}
		}

		vectors[i] = vec
	}

	return vectors, nil
}

func (e *TFIDFEmbedder) Profile() domain.ModelProfile {
	return e.profile
}

// tokenize splits text into lowercase words.
func tokenize(text string) []string {
	var words []string
	var word strings.Builder

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
		} else if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}
	if word.Len() > 0 {
		words = append(words, word.String())
	}

	return words
}
