package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTRRegistry(names ...string) *Registry {
	r := NewRegistry()
	for _, n := range names {
		r.AddTR(n, "/data/trapt/TR_bed/"+n+".bed")
	}
	return r
}

func TestFuzzyTR(t *testing.T) {
	r := newTRRegistry("GATA4@Sample_03_0174", "TBX5@Sample_03_0173", "GATA6@Sample_01_0001", "GATA", "gata2@Sample_09")

	tests := []struct {
		name    string
		keyword string
		want    []string
	}{
		{"substring in qualified keys", "GATA", []string{"GATA4@Sample_03_0174", "GATA6@Sample_01_0001"}},
		{"case sensitive", "gata", []string{"gata2@Sample_09"}},
		{"no match", "FOXA1", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.FuzzyTR(tt.keyword))
		})
	}
}

func TestFuzzyTR_CapsAtTen(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 15; i++ {
		r.AddTR("CTCF@Sample_"+string(rune('a'+i)), "/x")
	}

	got := r.FuzzyTR("CTCF")
	assert.Len(t, got, MaxFuzzyMatches)
	assert.Equal(t, "CTCF@Sample_a", got[0])
	assert.Equal(t, "CTCF@Sample_j", got[9])
}

func TestSearchTR_CaseInsensitive(t *testing.T) {
	r := newTRRegistry("GATA4@Sample_03_0174", "TBX5@Sample_03_0173", "gata2@Sample_09", "GATA")

	got := r.SearchTR("gAtA")
	names := make([]string, len(got))
	for i, e := range got {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"GATA4@Sample_03_0174", "gata2@Sample_09", "GATA"}, names)
	assert.Equal(t, "/data/trapt/TR_bed/GATA.bed", got[2].Path)
}

func TestRegistry_AddReplacesKeepingOrder(t *testing.T) {
	r := NewRegistry()
	r.AddAnnotation("Enhancer", "/a")
	r.AddAnnotation("TFBS", "/b")
	r.AddAnnotation("Enhancer", "/c")

	assert.Equal(t, []string{"Enhancer", "TFBS"}, r.AnnotationTypes())
	path, ok := r.Annotation("Enhancer")
	assert.True(t, ok)
	assert.Equal(t, "/c", path)

	_, ok = r.Annotation("Missing")
	assert.False(t, ok)
}

func TestHasCancerType(t *testing.T) {
	r := NewRegistry()
	r.SetCancerTypes([]string{"BRCA", "LUAD"})

	assert.True(t, r.HasCancerType("LUAD"))
	assert.False(t, r.HasCancerType("luad"))
	assert.False(t, r.HasCancerType(""))
}
