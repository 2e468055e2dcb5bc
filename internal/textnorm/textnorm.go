// Package textnorm folds free text and technology names into comparable token
// sets and provides the set similarity measures used for scoring.
package textnorm

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// techAliases maps common spellings of a technology to one canonical name.
var techAliases = map[string]string{
	"golang":     "go",
	"go lang":    "go",
	"js":         "javascript",
	"ts":         "typescript",
	"k8s":        "kubernetes",
	"reactjs":    "react",
	"react.js":   "react",
	"vuejs":      "vue",
	"vue.js":     "vue",
	"nodejs":     "node.js",
	"node":       "node.js",
	"postgres":   "postgresql",
	"psql":       "postgresql",
	"py":         "python",
	"python3":    "python",
	"aws lambda": "lambda",
	"gcp":        "google cloud",
	"tf":         "terraform",
	"ml":         "machine learning",
	"ai/ml":      "machine learning",
}

// tokenAliases applies to single words extracted from prose.
var tokenAliases = map[string]string{
	"golang":   "go",
	"k8s":      "kubernetes",
	"js":       "javascript",
	"reactjs":  "react",
	"nodejs":   "node",
	"postgres": "postgresql",
	"apis":     "api",
}

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an and are as at be been but by for from has have he her his i in into is it its
		me my of on or our out so that the their them they this to was we were what when which who will with you your
		about across also all any can do does each had how if just more most not only other over such than then there
		these those through up very while would using use used build building built help helping make making work
		working worked team teams company companies years year experience`) {
		stopWords[w] = struct{}{}
	}
}

// Set is an unordered collection of normalized terms.
type Set map[string]struct{}

// Fold lowercases s with full Unicode case folding after NFKC normalization.
func Fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}

// Tech normalizes a single technology name.
func Tech(name string) string {
	folded := strings.Join(strings.Fields(Fold(name)), " ")
	if canonical, ok := techAliases[folded]; ok {
		return canonical
	}
	return folded
}

// TechSet normalizes technology names into a set, ignoring blanks.
func TechSet(names []string) Set {
	set := make(Set, len(names))
	for _, name := range names {
		if t := Tech(name); t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// Tokens splits texts into a set of lowercased words with punctuation and
// stop words removed.
func Tokens(texts ...string) Set {
	set := Set{}
	for _, text := range texts {
		words := strings.FieldsFunc(Fold(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
		})
		for _, word := range words {
			if strings.Trim(word, "+#") == "" {
				continue
			}
			if alias, ok := tokenAliases[word]; ok {
				word = alias
			}
			if len([]rune(word)) < 2 {
				continue
			}
			if _, stop := stopWords[word]; stop {
				continue
			}
			set[word] = struct{}{}
		}
	}
	return set
}

// SplitList splits a delimiter separated string on commas, semicolons or
// pipes and trims each element.
func SplitList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Intersection returns the sorted common members of a and b.
func Intersection(a, b Set) []string {
	if len(a) > len(b) {
		a, b = b, a
	}
	common := make([]string, 0)
	for term := range a {
		if _, ok := b[term]; ok {
			common = append(common, term)
		}
	}
	sort.Strings(common)
	return common
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets score 0.
func Jaccard(a, b Set) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	common := len(Intersection(a, b))
	union := len(a) + len(b) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}

// Cosine returns the cosine similarity of a and b as binary term vectors,
// |a∩b| / sqrt(|a|·|b|). Either set empty scores 0.
func Cosine(a, b Set) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	common := len(Intersection(a, b))
	return float64(common) / math.Sqrt(float64(len(a))*float64(len(b)))
}

// VectorCosine returns the cosine similarity of two dense vectors. Mismatched
// or zero vectors score 0.
func VectorCosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
