package interp

import (
	"math"
	"testing"

	"puzzleparty/geom"
)

func TestUpdate_ZeroDtIsIdempotent(t *testing.T) {
	i := New(geom.V(1, 2), geom.Zero)
	i.ServerUpdate(geom.V(10, 10), geom.V(1, 0))
	i.Update(0.016)
	before := i
	for n := 0; n < 5; n++ {
		i.Update(0)
	}
	if i != before {
		t.Fatalf("dt=0 changed state: %+v -> %+v", before, i)
	}
}

func TestUpdate_ConvergesWithoutSnapping(t *testing.T) {
	i := New(geom.Zero, geom.Zero)
	i.ServerUpdate(geom.V(10, 0), geom.Zero)
	i.Update(1.0 / 60)
	p := i.Get()
	if p.X <= 0 || p.X >= 10 {
		t.Fatalf("first frame should move part way, got %v", p)
	}
	for n := 0; n < 120; n++ {
		i.Update(1.0 / 60)
	}
	if !i.Get().ApproxEqual(geom.V(10, 0), 1e-3) {
		t.Fatalf("did not converge: %v", i.Get())
	}
}

func TestUpdate_HugeDtIsStable(t *testing.T) {
	i := New(geom.V(-3, 7), geom.V(100, 100))
	i.ServerUpdate(geom.V(4, 5), geom.Zero)
	i.Update(1e5)
	if i.Get() != geom.V(4, 5) {
		t.Fatalf("huge dt should land on the sample, got %v", i.Get())
	}
	if !i.Derivative().IsFinite() || i.Derivative().Len() > 1e-3 {
		t.Fatalf("derivative diverged: %v", i.Derivative())
	}
}

func TestUpdate_ExtrapolationIsBounded(t *testing.T) {
	i := New(geom.Zero, geom.Zero)
	i.ServerUpdate(geom.Zero, geom.V(2, 0))
	for n := 0; n < 600; n++ {
		i.Update(1.0 / 60)
	}
	want := 2 * MaxExtrapolation
	if math.Abs(i.Get().X-want) > 1e-3 {
		t.Fatalf("extrapolated to %v, want capped at %v", i.Get().X, want)
	}
}

func TestTeleport(t *testing.T) {
	i := New(geom.Zero, geom.Zero)
	i.ServerUpdate(geom.V(5, 5), geom.Zero)
	i.Update(0.01)
	i.Teleport(geom.V(-1, -1), geom.V(0.5, 0))
	if i.Get() != geom.V(-1, -1) || i.Derivative() != geom.V(0.5, 0) {
		t.Fatalf("teleport did not reset state: %v %v", i.Get(), i.Derivative())
	}
	if i.Target() != geom.V(-1, -1) {
		t.Fatalf("teleport should also reset the target, got %v", i.Target())
	}
}

func TestDerivative_TracksMovingTarget(t *testing.T) {
	i := New(geom.Zero, geom.Zero)
	i.ServerUpdate(geom.Zero, geom.V(1, 0))
	for n := 0; n < 6; n++ {
		i.Update(0.02)
	}
	if d := i.Derivative(); d.X <= 0 {
		t.Fatalf("expected positive x velocity while extrapolating, got %v", d)
	}
}
