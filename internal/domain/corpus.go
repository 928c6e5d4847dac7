package domain

// Corpus is one immutable snapshot of the document store. A snapshot is
// internally consistent: no document appears without its entities, and
// concurrent ingestion never mutates a snapshot already handed out.
type Corpus struct {
	Documents []Document
	Entities  map[string][]Entity // keyed by document ID
}

// EntitiesOf returns the stored entities of a document.
func (c *Corpus) EntitiesOf(id string) []Entity {
	if c.Entities == nil {
		return nil
	}
	return c.Entities[id]
}

// Jaccard computes |A∩B| / |A∪B| over two string sets.
// Two empty sets have similarity 0, not 1: no evidence is not a match.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
