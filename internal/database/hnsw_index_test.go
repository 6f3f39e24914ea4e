package database

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/kozaktomas/attendance/internal/matcher"
)

func enrollment(id string, vec ...float32) StoredEnrollment {
	return StoredEnrollment{StudentID: id, Embedding: vec, Status: EnrollmentOK, Dim: len(vec)}
}

func TestEnrollmentIndex_EmptyIndex(t *testing.T) {
	idx := NewEnrollmentIndex(matcher.MetricEuclidean)

	ids, dists, err := idx.Nearest([]float32{1, 2}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 || len(dists) != 0 {
		t.Errorf("expected no results, got %v", ids)
	}
	if idx.Count() != 0 {
		t.Errorf("expected count 0, got %d", idx.Count())
	}
}

func TestEnrollmentIndex_BuildSkipsUnusable(t *testing.T) {
	idx := NewEnrollmentIndex(matcher.MetricEuclidean)

	idx.Build([]StoredEnrollment{
		enrollment("a", 0, 0),
		{StudentID: "b", Status: EnrollmentNoFace},
		{StudentID: "c", Status: EnrollmentFailed},
		enrollment("d", 1, 1, 1), // dimension mismatch with "a"
	})

	if idx.Count() != 1 {
		t.Errorf("expected 1 indexed enrollment, got %d", idx.Count())
	}
	ids, _, err := idx.Nearest([]float32{0, 0}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "a" {
		t.Errorf("expected only 'a' to be indexed, got %v", ids)
	}
}

func TestEnrollmentIndex_Nearest(t *testing.T) {
	idx := NewEnrollmentIndex(matcher.MetricEuclidean)
	idx.Build([]StoredEnrollment{
		enrollment("far", 10, 10),
		enrollment("near", 0.1, 0),
		enrollment("mid", 1, 0),
	})

	ids, dists, err := idx.Nearest([]float32{0, 0}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ids))
	}
	if ids[0] != "near" || ids[1] != "mid" {
		t.Errorf("expected [near mid], got %v", ids)
	}
	if math.Abs(dists[0]-0.1) > 1e-6 {
		t.Errorf("expected distance 0.1, got %v", dists[0])
	}
}

func TestEnrollmentIndex_UpsertAndDelete(t *testing.T) {
	idx := NewEnrollmentIndex(matcher.MetricEuclidean)
	idx.Build([]StoredEnrollment{enrollment("a", 0, 0), enrollment("b", 5, 5)})

	e := enrollment("a", 5, 5.1)
	idx.Upsert(&e)

	ids, _, err := idx.Nearest([]float32{0, 0}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "b" {
		t.Errorf("expected 'b' after moving 'a', got %v", ids)
	}

	idx.Delete("b")
	if idx.Count() != 1 {
		t.Errorf("expected count 1 after delete, got %d", idx.Count())
	}

	noFace := StoredEnrollment{StudentID: "a", Status: EnrollmentNoFace}
	idx.Upsert(&noFace)
	if idx.Count() != 0 {
		t.Errorf("expected unusable upsert to remove student, got count %d", idx.Count())
	}
}

func TestEnrollmentIndex_ReaddAfterDelete(t *testing.T) {
	idx := NewEnrollmentIndex(matcher.MetricEuclidean)
	idx.Build([]StoredEnrollment{enrollment("a", 0, 0), enrollment("b", 5, 5), enrollment("c", 9, 9)})

	idx.Delete("a")
	ids, _, err := idx.Nearest([]float32{0, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slices.Contains(ids, "a") {
		t.Errorf("deleted student returned: %v", ids)
	}

	e := enrollment("a", 9, 9.1)
	idx.Upsert(&e)
	ids, dists, err := idx.Nearest([]float32{9, 9.1}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "a" || dists[0] > 1e-6 {
		t.Errorf("expected re-added 'a' at its new position, got %v %v", ids, dists)
	}
	if idx.Count() != 3 {
		t.Errorf("expected count 3, got %d", idx.Count())
	}
}

// Random upserts and deletes interleaved with searches must keep the graph searchable
// and never return a deleted student.
func TestEnrollmentIndex_Churn(t *testing.T) {
	idx := NewEnrollmentIndex(matcher.MetricEuclidean)
	rng := rand.New(rand.NewPCG(1, 2))

	vector := func() []float32 {
		v := make([]float32, 8)
		for i := range v {
			v[i] = rng.Float32()
		}
		return v
	}

	var initial []StoredEnrollment
	for i := range 40 {
		initial = append(initial, enrollment(fmt.Sprintf("s%d", i), vector()...))
	}
	idx.Build(initial)
	present := make(map[string]bool, 40)
	for _, e := range initial {
		present[e.StudentID] = true
	}

	for round := range 500 {
		id := fmt.Sprintf("s%d", rng.IntN(40))
		switch rng.IntN(3) {
		case 0:
			idx.Delete(id)
			delete(present, id)
		default:
			e := enrollment(id, vector()...)
			idx.Upsert(&e)
			present[id] = true
		}

		if idx.Count() != len(present) {
			t.Fatalf("round %d: count = %d, want %d", round, idx.Count(), len(present))
		}
		ids, _, err := idx.Nearest(vector(), 5)
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", round, err)
		}
		if len(present) > 0 && len(ids) == 0 {
			t.Fatalf("round %d: no results with %d indexed", round, len(present))
		}
		for _, got := range ids {
			if !present[got] {
				t.Fatalf("round %d: deleted student %s returned", round, got)
			}
		}
	}
}

func TestEnrollmentIndex_DimensionMismatch(t *testing.T) {
	idx := NewEnrollmentIndex(matcher.MetricEuclidean)
	idx.Build([]StoredEnrollment{enrollment("a", 0, 0)})

	if _, _, err := idx.Nearest([]float32{0, 0, 0}, 1); err == nil {
		t.Error("expected error for query with wrong dimension")
	}
}

func TestEnrollmentIndex_CosineMetric(t *testing.T) {
	idx := NewEnrollmentIndex(matcher.MetricCosine)
	idx.Build([]StoredEnrollment{
		enrollment("orthogonal", 0, 1),
		enrollment("parallel", 3, 0),
	})

	ids, dists, err := idx.Nearest([]float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "parallel" {
		t.Errorf("expected 'parallel', got %v", ids)
	}
	if math.Abs(dists[0]) > 1e-6 {
		t.Errorf("expected cosine distance 0, got %v", dists[0])
	}
}

func TestStudent_FullName(t *testing.T) {
	s := Student{FirstName: "Jan", LastName: "Novák"}
	if s.FullName() != "Jan Novák" {
		t.Errorf("unexpected full name '%s'", s.FullName())
	}
	s.LastName = ""
	if s.FullName() != "Jan" {
		t.Errorf("unexpected full name '%s'", s.FullName())
	}
}

func TestStoredEnrollment_Usable(t *testing.T) {
	ok := enrollment("a", 1)
	if !ok.Usable() {
		t.Error("expected ok enrollment to be usable")
	}
	noFace := StoredEnrollment{StudentID: "b", Status: EnrollmentNoFace, Embedding: []float32{1}}
	if noFace.Usable() {
		t.Error("expected no_face enrollment to be unusable")
	}
}
