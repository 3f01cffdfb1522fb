package attr

import (
	"errors"
	"sync"
	"testing"

	"github.com/mohammed-shakir/crs-cache/internal/crs/crserr"
)

func TestTypedGet_HappyPath(t *testing.T) {
	s := NewStore()
	s.Set("epsg", Int(3067))
	s.Set("swapCoord", Bool(true))
	s.Set("projUri", String("http://www.opengis.net/def/crs/EPSG/0/3067"))

	if v, err := s.Int("epsg"); err != nil || v != 3067 {
		t.Fatalf("epsg=%d err=%v", v, err)
	}
	if v, err := s.Bool("swapCoord"); err != nil || !v {
		t.Fatalf("swapCoord=%v err=%v", v, err)
	}
	if v, err := Get[string](s, "projUri"); err != nil || v == "" {
		t.Fatalf("projUri=%q err=%v", v, err)
	}
}

func TestTypedGet_MismatchNamesBothTypes(t *testing.T) {
	s := NewStore()
	s.Set("epsg", Int(4326))

	_, err := s.String("epsg")
	if !errors.Is(err, crserr.ErrAttributeTypeMismatch) {
		t.Fatalf("want type mismatch, got %v", err)
	}
	var e *crserr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *crserr.Error, got %T", err)
	}
	if v, _ := e.Param("expected"); v != "string" {
		t.Fatalf("expected=%q", v)
	}
	if v, _ := e.Param("found"); v != "int" {
		t.Fatalf("found=%q", v)
	}
}

func TestTypedGet_Missing(t *testing.T) {
	s := NewStore()
	_, err := s.Bool("showHeight")
	if !errors.Is(err, crserr.ErrAttributeMissing) {
		t.Fatalf("want missing, got %v", err)
	}
	if errors.Is(err, crserr.ErrAttributeTypeMismatch) {
		t.Fatalf("missing must be distinct from mismatch")
	}
}

func TestOverwriteChangesType(t *testing.T) {
	s := NewStore()
	s.Set("k", Bool(false))
	s.Set("k", String("v"))
	if _, err := s.Bool("k"); !errors.Is(err, crserr.ErrAttributeTypeMismatch) {
		t.Fatalf("stale type after overwrite: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len=%d want 1", s.Len())
	}
}

func TestSnapshotAndNames(t *testing.T) {
	s := NewStore()
	s.Merge(map[string]Value{"b": Int(2), "a": Bool(true)})
	names := s.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("names=%v", names)
	}
	snap := s.Snapshot()
	if snap["a"] != true || snap["b"] != 2 {
		t.Fatalf("snapshot=%v", snap)
	}
	if (Value{}).Type() != TypeInvalid || (Value{}).Any() != nil {
		t.Fatalf("zero value must be invalid")
	}
}

func TestConcurrentSetGet(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.Set("n", Int(i*j))
				_, _ = s.Int("n")
			}
		}(i)
	}
	wg.Wait()
	if _, err := s.Int("n"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
