// Package nlp provides the lightweight language tooling the ranking pipeline
// depends on: morphological form expansion and lexicon-based named entity
// extraction. Both are table-driven; the tables ship in configuration.
package nlp

import "strings"

// Morphology expands a word into its known surface forms from a static
// table. Unknown words expand to themselves, so matching degrades to exact
// rather than failing.
type Morphology struct {
	forms map[string][]string
}

// NewMorphology builds a form table keyed by lowercase lemma. Every listed
// form also maps back to the full form set, so lookups work from any
// inflection, not only the lemma.
func NewMorphology(forms map[string][]string) *Morphology {
	index := make(map[string][]string)
	for lemma, list := range forms {
		lemma = strings.ToLower(lemma)
		all := make([]string, 0, len(list)+1)
		all = append(all, lemma)
		for _, f := range list {
			f = strings.ToLower(f)
			if f != lemma {
				all = append(all, f)
			}
		}
		for _, f := range all {
			index[f] = all
		}
	}
	return &Morphology{forms: index}
}

// FormsOf returns all known forms of a word, the word itself included.
func (m *Morphology) FormsOf(word string) []string {
	word = strings.ToLower(word)
	if all, ok := m.forms[word]; ok {
		return all
	}
	return []string{word}
}
