package geom

import (
	"math"
	"testing"
)

func TestTriangleContains_BothWindings(t *testing.T) {
	a, b, c := V(0, 0), V(2, 0), V(0, 2)
	if !TriangleContains(a, b, c, V(0.5, 0.5)) {
		t.Fatal("expected point inside ccw triangle")
	}
	if !TriangleContains(c, b, a, V(0.5, 0.5)) {
		t.Fatal("expected point inside cw triangle")
	}
	if TriangleContains(a, b, c, V(1.5, 1.5)) {
		t.Fatal("point beyond hypotenuse should be outside")
	}
}

func TestTriangleContains_Edge(t *testing.T) {
	if !TriangleContains(V(0, 0), V(2, 0), V(0, 2), V(1, 0)) {
		t.Fatal("point on an edge counts as inside")
	}
}

func TestSignedArea(t *testing.T) {
	square := []Vec2{V(0, 0), V(1, 0), V(1, 1), V(0, 1)}
	if got := SignedArea(square); got != 1 {
		t.Fatalf("ccw unit square area = %v, want 1", got)
	}
	rev := []Vec2{V(0, 1), V(1, 1), V(1, 0), V(0, 0)}
	if got := SignedArea(rev); got != -1 {
		t.Fatalf("cw unit square area = %v, want -1", got)
	}
}

func TestRotate90(t *testing.T) {
	if got := V(1, 0).Rotate90(); got != V(0, 1) {
		t.Fatalf("rotate (1,0) = %v", got)
	}
	if got := V(3, 4).Len(); math.Abs(got-5) > 1e-12 {
		t.Fatalf("len = %v", got)
	}
}

func TestGrid_Adjacent(t *testing.T) {
	g := Grid{Cols: 3, Rows: 2}
	if !g.Adjacent(0, 1) || !g.Adjacent(1, 4) {
		t.Fatal("expected horizontal and vertical neighbours to be adjacent")
	}
	if g.Adjacent(2, 3) {
		t.Fatal("row wrap-around must not count as adjacent")
	}
	if g.Adjacent(0, 4) || g.Adjacent(0, 0) || g.Adjacent(0, 6) {
		t.Fatal("diagonal, self and out-of-range pairs are not adjacent")
	}
}

func TestGrid_Neighbors(t *testing.T) {
	g := Grid{Cols: 3, Rows: 3}
	if got := len(g.Neighbors(4)); got != 4 {
		t.Fatalf("centre cell neighbours = %d, want 4", got)
	}
	if got := len(g.Neighbors(0)); got != 2 {
		t.Fatalf("corner cell neighbours = %d, want 2", got)
	}
	single := Grid{Cols: 1, Rows: 1}
	if got := len(single.Neighbors(0)); got != 0 {
		t.Fatalf("1x1 grid neighbours = %d, want 0", got)
	}
}
