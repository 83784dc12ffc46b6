package chunked

import "testing"

func TestPart1By2(t *testing.T) {
	if got := part1By2(0); got != 0 {
		t.Errorf("part1By2(0) = %d, want 0", got)
	}
	if got := part1By2(1); got != 1 {
		t.Errorf("part1By2(1) = %d, want 1", got)
	}
	if got := part1By2(0x3ff); got != 0x09249249 {
		t.Errorf("part1By2(0x3ff) = %x, want 0x09249249", got)
	}
}

func TestMortonEncodeInterleaving(t *testing.T) {
	if got := mortonEncode(1, 0, 0); got != 1 {
		t.Errorf("mortonEncode(1,0,0) = %d, want 1", got)
	}
	if got := mortonEncode(0, 1, 0); got != 2 {
		t.Errorf("mortonEncode(0,1,0) = %d, want 2", got)
	}
	if got := mortonEncode(0, 0, 1); got != 4 {
		t.Errorf("mortonEncode(0,0,1) = %d, want 4", got)
	}
}

func TestSortOrderStability(t *testing.T) {
	// all codes equal: order must be identity (stable).
	codes := []uint32{5, 5, 5, 5}
	order := sortOrder(codes)
	for i, v := range order {
		if v != i {
			t.Errorf("order[%d] = %d, want %d (stability for equal keys)", i, v, i)
		}
	}
}

func TestSortOrderGroupsByCode(t *testing.T) {
	codes := []uint32{3, 1, 2, 1, 3, 2}
	order := sortOrder(codes)
	if len(order) != len(codes) {
		t.Fatalf("len(order) = %d, want %d", len(order), len(codes))
	}
	seen := map[int]bool{}
	for _, idx := range order {
		if seen[idx] {
			t.Fatalf("order contains duplicate index %d", idx)
		}
		seen[idx] = true
	}
	prev := uint32(0)
	for _, idx := range order {
		if codes[idx] < prev {
			t.Fatalf("order is not sorted: %v (codes %v)", order, codes)
		}
		prev = codes[idx]
	}
	// stable: original indices 1 and 3 both have code 1, 1 occurred first.
	var posOf1, posOf3 int
	for pos, idx := range order {
		if idx == 1 {
			posOf1 = pos
		}
		if idx == 3 {
			posOf3 = pos
		}
	}
	if posOf1 > posOf3 {
		t.Errorf("stable sort violated: index 1 (pos %d) should precede index 3 (pos %d)", posOf1, posOf3)
	}
}

func TestSortByPositionEmpty(t *testing.T) {
	order := SortByPosition(nil, 0, [3]float32{}, [3]float32{})
	if len(order) != 0 {
		t.Errorf("len(order) = %d, want 0", len(order))
	}
}

func TestSortByPositionGroupsNearbyPoints(t *testing.T) {
	// Two clusters far apart on x; points within a cluster should end up
	// adjacent in sorted order.
	means := []float32{
		0, 0, 0,
		0.01, 0, 0,
		100, 0, 0,
		100.01, 0, 0,
	}
	gmin, gmax := GlobalBounds(means, 4)
	order := SortByPosition(means, 4, gmin, gmax)
	// cluster membership by rank: {0,1} and {2,3} should each be contiguous.
	clusterOf := func(i int) int {
		if means[i*3] < 50 {
			return 0
		}
		return 1
	}
	for r := 1; r < len(order); r++ {
		if clusterOf(order[r]) < clusterOf(order[r-1]) {
			t.Errorf("order %v does not keep clusters contiguous", order)
		}
	}
}
