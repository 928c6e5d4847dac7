package feature

import "testing"

func sample() Vector {
	return Vector{
		EmbeddingScore:  0.1,
		BM25Score:       0.2,
		NEROverlap:      0.3,
		MorphoMatch:     0.4,
		TitleMatch:      0.5,
		ExactMatch:      1.0,
		DaysAgo:         7,
		SourceAuthority: 0.5,
		TextLength:      120,
	}
}

func TestValuesMatchesColumns(t *testing.T) {
	v := sample()
	cols := Columns()
	vals := v.Values()
	if len(cols) != len(vals) {
		t.Fatalf("Columns has %d entries, Values has %d", len(cols), len(vals))
	}
	for i, col := range cols {
		got, err := v.ByName(col)
		if err != nil {
			t.Fatalf("ByName(%q): %v", col, err)
		}
		if got != vals[i] {
			t.Fatalf("column %q: ByName = %f, Values[%d] = %f", col, got, i, vals[i])
		}
	}
}

func TestByNameUnknownColumn(t *testing.T) {
	if _, err := sample().ByName("page_rank"); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

func TestReorder(t *testing.T) {
	v := sample()
	got, err := v.Reorder([]string{"days_ago", "embedding_score", "exact_match"})
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	want := []float64{7, 0.1, 1.0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Reorder[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestReorderUnknownColumn(t *testing.T) {
	if _, err := sample().Reorder([]string{"embedding_score", "nope"}); err == nil {
		t.Fatal("expected error for unknown column in layout")
	}
}

func TestReorderCanonicalEqualsValues(t *testing.T) {
	v := sample()
	got, err := v.Reorder(Columns())
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	want := v.Values()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("canonical reorder diverged at %d: %f vs %f", i, got[i], want[i])
		}
	}
}
