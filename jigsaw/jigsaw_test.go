package jigsaw

import (
	"errors"
	"sort"
	"testing"

	"puzzleparty/geom"
)

func newTestJigsaw(t *testing.T, cols, rows int) *Jigsaw {
	t.Helper()
	g := geom.Grid{Cols: cols, Rows: rows}
	j, err := Generate(42, geom.V(float64(cols), float64(rows)), g)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return j
}

func sorted(xs []int) []int {
	out := append([]int(nil), xs...)
	sort.Ints(out)
	return out
}

func assertSymmetric(t *testing.T, j *Jigsaw) {
	t.Helper()
	for a := range j.Tiles {
		for _, b := range j.Tiles[a].ConnectedTo {
			if !j.IsConnected(b, a) {
				t.Fatalf("%d lists %d but not the other way round", a, b)
			}
		}
	}
}

func TestGenerate_InitialLayout(t *testing.T) {
	j := newTestJigsaw(t, 3, 2)
	if len(j.Tiles) != 6 {
		t.Fatalf("tiles = %d", len(j.Tiles))
	}
	if got := j.Tiles[4].Pos.Get(); got != geom.V(1.5, 1.5) {
		t.Fatalf("tile 4 starts at %v, want its cell centre", got)
	}
	if j.Tiles[4].Cell != (geom.Cell{X: 1, Y: 1}) {
		t.Fatalf("tile 4 cell = %v", j.Tiles[4].Cell)
	}
}

func TestGenerate_RejectsEmptyGrid(t *testing.T) {
	_, err := Generate(1, geom.V(1, 1), geom.Grid{Cols: 0, Rows: 4})
	if !errors.Is(err, ErrInvalidPuzzle) {
		t.Fatalf("expected ErrInvalidPuzzle, got %v", err)
	}
}

func TestConnect_SymmetricAndAdjacentOnly(t *testing.T) {
	j := newTestJigsaw(t, 3, 3)
	if !j.Connect(0, 1) || !j.Connect(1, 4) {
		t.Fatal("adjacent connects should succeed")
	}
	if j.Connect(1, 0) {
		t.Fatal("duplicate connect should be rejected")
	}
	if j.Connect(0, 4) || j.Connect(2, 3) || j.Connect(5, 5) || j.Connect(0, 99) {
		t.Fatal("non-adjacent, self and out-of-range connects should be rejected")
	}
	assertSymmetric(t, j)
}

func TestConnectedGroup_SameFromEveryMemberWithCycle(t *testing.T) {
	j := newTestJigsaw(t, 3, 3)
	// 0-1-4-3-0 成环，再挂上 5
	for _, p := range [][2]int{{0, 1}, {1, 4}, {4, 3}, {3, 0}, {4, 5}} {
		if !j.Connect(p[0], p[1]) {
			t.Fatalf("connect %v failed", p)
		}
	}
	want := []int{0, 1, 3, 4, 5}
	for _, m := range want {
		got := j.ConnectedGroup(m)
		if got[0] != m {
			t.Fatalf("group of %d should start with itself, got %v", m, got)
		}
		if s := sorted(got); len(s) != len(want) || !equalInts(s, want) {
			t.Fatalf("group of %d = %v, want %v", m, s, want)
		}
	}
	if g := j.ConnectedGroup(8); len(g) != 1 || g[0] != 8 {
		t.Fatalf("lonely tile group = %v", g)
	}
	assertSymmetric(t, j)
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMoveTile_KeepsGroupRigid(t *testing.T) {
	j := newTestJigsaw(t, 2, 2)
	j.Connect(0, 1)
	j.Connect(1, 3)
	j.MoveTile(3, geom.V(10, 10), true)
	if got := j.Tiles[3].Pos.Get(); got != geom.V(10, 10) {
		t.Fatalf("moved tile at %v", got)
	}
	if got := j.Tiles[1].Pos.Get(); got != geom.V(10, 9) {
		t.Fatalf("tile 1 at %v, want one tile above", got)
	}
	if got := j.Tiles[0].Pos.Get(); got != geom.V(9, 9) {
		t.Fatalf("tile 0 at %v", got)
	}
	if got := j.Tiles[2].Pos.Get(); got != geom.V(0.5, 1.5) {
		t.Fatalf("unconnected tile moved to %v", got)
	}
}

func TestMoveTile_SmoothedMoveConverges(t *testing.T) {
	j := newTestJigsaw(t, 2, 1)
	j.MoveTile(0, geom.V(4, 4), false)
	if got := j.Tiles[0].Pos.Get(); got != geom.V(0.5, 0.5) {
		t.Fatalf("smoothed move should not jump, got %v", got)
	}
	j.Update(1e5)
	if got := j.Tiles[0].Pos.Get(); got != geom.V(4, 4) {
		t.Fatalf("after converging tile at %v", got)
	}
}

func TestContains_FollowsCurrentPosition(t *testing.T) {
	j := newTestJigsaw(t, 2, 2)
	if !j.Contains(0, geom.V(0.5, 0.5)) {
		t.Fatal("centre of tile 0 should be inside it")
	}
	if j.Contains(0, geom.V(1.5, 1.5)) {
		t.Fatal("centre of tile 3 should not be inside tile 0")
	}
	j.MoveTile(0, geom.V(20, 20), true)
	if j.Contains(0, geom.V(0.5, 0.5)) || !j.Contains(0, geom.V(20, 20)) {
		t.Fatal("hit test should use the current position")
	}
}

func TestTileAt_PrefersMostRecentInteraction(t *testing.T) {
	j := newTestJigsaw(t, 2, 1)
	j.MoveTile(0, geom.V(5, 5), true)
	j.MoveTile(1, geom.V(5, 5), true)

	j.Touch(0)
	if got, ok := j.TileAt(geom.V(5, 5)); !ok || got != 0 {
		t.Fatalf("after touching 0 top tile = %d,%v", got, ok)
	}
	j.Touch(1)
	if got, _ := j.TileAt(geom.V(5, 5)); got != 1 {
		t.Fatalf("after touching 1 top tile = %d", got)
	}
	j.Touch(0)
	if got, _ := j.TileAt(geom.V(5, 5)); got != 0 {
		t.Fatalf("index order must not win over interaction time, got %d", got)
	}
	if order := j.DrawOrder(); order[len(order)-1] != 0 {
		t.Fatalf("draw order should end with the touched tile, got %v", order)
	}
	if _, ok := j.TileAt(geom.V(-50, -50)); ok {
		t.Fatal("empty space should not hit any tile")
	}
}

func TestSnapCandidates_Threshold(t *testing.T) {
	j := newTestJigsaw(t, 2, 1) // tile size 1
	j.MoveTile(1, geom.V(10, 10), true)

	j.MoveTile(0, geom.V(9-0.125, 10), true)
	if got := j.SnapCandidates(0, SnapDistance); len(got) != 1 || got[0] != [2]int{0, 1} {
		t.Fatalf("0.125 off should snap, got %v", got)
	}

	j.MoveTile(0, geom.V(9, 10.25), true)
	if got := j.SnapCandidates(0, 0.25); len(got) != 1 {
		t.Fatalf("delta equal to the threshold should snap, got %v", got)
	}
	j.MoveTile(0, geom.V(9, 10.25+1.0/1024), true)
	if got := j.SnapCandidates(0, 0.25); len(got) != 0 {
		t.Fatalf("delta just over the threshold should not snap, got %v", got)
	}
	j.MoveTile(0, geom.V(9, 10.25), true)
	if got := j.SnapCandidates(0, SnapDistance); len(got) != 0 {
		t.Fatalf("0.25 off is beyond the default snap distance, got %v", got)
	}
}

func TestSnapCandidates_SkipsConnectedAndChecksWholeGroup(t *testing.T) {
	j := newTestJigsaw(t, 3, 1)
	// 0 与 1 已相连，整组拖到 2 的左侧
	j.Connect(0, 1)
	j.MoveTile(2, geom.V(10, 0), true)
	j.MoveTile(0, geom.V(8, 0.0625), true)
	got := j.SnapCandidates(0, SnapDistance)
	if len(got) != 1 || got[0] != [2]int{1, 2} {
		t.Fatalf("expected the group member 1 to snap onto 2, got %v", got)
	}
}

func TestSnapshot_ReflectsModel(t *testing.T) {
	j := newTestJigsaw(t, 2, 1)
	j.Connect(0, 1)
	j.MoveTile(0, geom.V(3, 3), false)
	s := j.Snapshot()
	if s[1].Pos != geom.V(4, 3) || len(s[0].Connections) != 1 || s[0].Connections[0] != 1 {
		t.Fatalf("snapshot = %+v", s)
	}
}
