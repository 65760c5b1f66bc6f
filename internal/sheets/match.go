package sheets

import (
	"strings"

	"catalogdesk-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

// MatchThreshold is the minimum Jaro-Winkler similarity for two header names
// to be treated as the same column.
const MatchThreshold = 0.85

type headerLink struct {
	Dest        int
	Source      int
	Correlation float64
}

func matchKey(name string) string {
	return strings.ToLower(textutil.NormalizeHeader(name))
}

// linkHeaders pairs every destination column with at most one source
// column: exact matches first, then the most similar remaining source
// header above MatchThreshold.
func linkHeaders(dest, source []string) []headerLink {
	var result []headerLink
	matchedDest := make(map[int]struct{})
	matchedSource := make(map[int]struct{})

	for d, left := range dest {
		for s, right := range source {
			if _, ok := matchedSource[s]; ok {
				continue
			}
			if matchKey(left) == matchKey(right) {
				result = append(result, headerLink{Dest: d, Source: s, Correlation: 1})
				matchedDest[d] = struct{}{}
				matchedSource[s] = struct{}{}
				break
			}
		}
	}

	for d, left := range dest {
		if _, ok := matchedDest[d]; ok || matchKey(left) == "" {
			continue
		}

		var mostSimilarity float64
		mostSimilar := -1
		for s, right := range source {
			if _, ok := matchedSource[s]; ok {
				continue
			}
			similarity := matchr.JaroWinkler(matchKey(left), matchKey(right), false)
			if similarity > mostSimilarity {
				mostSimilarity = similarity
				mostSimilar = s
			}
		}

		if mostSimilar >= 0 && mostSimilarity >= MatchThreshold {
			result = append(result, headerLink{Dest: d, Source: mostSimilar, Correlation: mostSimilarity})
			matchedDest[d] = struct{}{}
			matchedSource[mostSimilar] = struct{}{}
		}
	}

	return result
}

// arrange lays `values` out in destination column order, destination
// columns without a source get an empty cell.
func arrange(dest, source, values []string) ([]string, int) {
	row := make([]string, len(dest))
	links := linkHeaders(dest, source)
	for _, l := range links {
		if l.Source < len(values) {
			row[l.Dest] = values[l.Source]
		}
	}
	return row, len(links)
}
