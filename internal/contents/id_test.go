package contents

import (
	"strconv"
	"testing"
	"time"
)

func TestNewRangedIDStaysInsideRange(t *testing.T) {
	idRange := IDRange{Base: 10000, Max: 19999}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 1000; i++ {
		id := NewRangedID(idRange, nil, now)
		numeric, err := strconv.Atoi(id)
		if err != nil {
			t.Fatalf("expected numeric id, got %q", id)
		}
		if !idRange.Contains(numeric) {
			t.Fatalf("id %d outside range %d-%d", numeric, idRange.Base, idRange.Max)
		}
	}
}

func TestNewRangedIDTerminatesNearExhaustion(t *testing.T) {
	idRange := IDRange{Base: 1, Max: 10000}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// 9000 of the 10000 slots are taken; generation must still terminate,
	// via the timestamp-modulo fallback if need be.
	taken := make(map[string]struct{}, 9000)
	for id := idRange.Base; id < idRange.Base+9000; id++ {
		taken[strconv.Itoa(id)] = struct{}{}
	}

	for i := 0; i < 1000; i++ {
		id := NewRangedID(idRange, taken, now.Add(time.Duration(i)*time.Millisecond))
		numeric, err := strconv.Atoi(id)
		if err != nil {
			t.Fatalf("expected numeric id, got %q", id)
		}
		if !idRange.Contains(numeric) {
			t.Fatalf("id %d outside range %d-%d", numeric, idRange.Base, idRange.Max)
		}
	}
}

func TestNewRangedIDFallbackWhenRangeFull(t *testing.T) {
	idRange := IDRange{Base: 1, Max: 100}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	taken := make(map[string]struct{}, idRange.Size())
	for id := idRange.Base; id <= idRange.Max; id++ {
		taken[strconv.Itoa(id)] = struct{}{}
	}

	id := NewRangedID(idRange, taken, now)
	numeric, err := strconv.Atoi(id)
	if err != nil {
		t.Fatalf("expected numeric id, got %q", id)
	}
	if !idRange.Contains(numeric) {
		t.Fatalf("fallback id %d outside range %d-%d", numeric, idRange.Base, idRange.Max)
	}
}

func TestTypeRangesDoNotOverlap(t *testing.T) {
	ranges := []ContentType{TypeAppStory, TypeNews, TypeMemo, TypeMemo2}
	for i, first := range ranges {
		for _, second := range ranges[i+1:] {
			a, _ := RangeFor(first)
			b, _ := RangeFor(second)
			if a.Base <= b.Max && b.Base <= a.Max {
				t.Fatalf("ranges for %s and %s overlap", first, second)
			}
		}
	}
}
