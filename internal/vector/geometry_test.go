/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"testing"
)

func TestRectContainsAndInset(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	in := r.Inset(5, 5)
	if in.X != 15 || in.Y != 25 || in.W != 90 || in.H != 40 {
		t.Fatalf("unexpected inset: %+v", in)
	}
	if r.EX() != 110 || r.EY() != 70 || r.Center() != (Pt{60, 45}) {
		t.Fatalf("unexpected derived values: %v %v %+v", r.EX(), r.EY(), r.Center())
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(Pt{1, 1})
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
	q := About(Rotate(math.Pi/2), Pt{10, 10}).Apply(Pt{20, 10})
	if !q.Eq(Pt{10, 20}, 1e-9) {
		t.Fatalf("unexpected pivot rotation: %+v", q)
	}
}

func TestRotatePoint(t *testing.T) {
	p := RotatePoint(Pt{10, 0}, 90, Pt{0, 0})
	if !p.Eq(Pt{0, 10}, 1e-9) {
		t.Fatalf("expected clockwise rotation on screen axes, got %+v", p)
	}
	if RotatePoint(Pt{3, 4}, 360, Pt{}) != (Pt{3, 4}) {
		t.Fatalf("full turn must be identity")
	}
}

func TestPointInRect_StrictAndRotated(t *testing.T) {
	r := R(0, 0, 10, 10)
	if PointInRect(Pt{0, 5}, r) {
		t.Fatalf("edge point must not be inside")
	}
	if !PointInRect(Pt{5, 5}, r) {
		t.Fatalf("centre must be inside")
	}
	rot := Rect{X: 0, Y: 0, W: 100, H: 10, Rotate: 90}
	// rotated 90° about (50,5) the rect spans x 45..55, y -45..55
	if !PointInRect(Pt{50, -40}, rot) {
		t.Fatalf("expected point inside rotated rect")
	}
	if PointInRect(Pt{10, 5}, rot) {
		t.Fatalf("expected point outside rotated rect")
	}
}

func TestHitPoint_Square(t *testing.T) {
	if !HitPoint(Pt{7.9, -7.9}, Pt{}, 8) {
		t.Fatalf("corner of the square must hit")
	}
	if HitPoint(Pt{8, 0}, Pt{}, 8) {
		t.Fatalf("radius boundary is exclusive")
	}
}

func TestRectInRect(t *testing.T) {
	drag := R(0, 0, 20, 20)
	if !RectInRect(R(0, 0, 10, 10), drag, false) {
		t.Fatalf("expected overlap")
	}
	if RectInRect(R(100, 100, 10, 10), drag, false) {
		t.Fatalf("expected no overlap")
	}
	if RectInRect(R(0, 0, 10, 10), drag, true) {
		t.Fatalf("all-in uses strict containment")
	}
	if !RectInRect(R(1, 1, 10, 10), drag, true) {
		t.Fatalf("expected containment")
	}
	rotated := Rect{X: 5, Y: 5, W: 10, H: 10, Rotate: 45}
	if RectInRect(rotated, R(4, 4, 12, 12), true) {
		t.Fatalf("rotated bounds exceed target")
	}
}

func TestCalcRelativePoint_RoundTrip(t *testing.T) {
	rects := []Rect{R(10, 20, 100, 50), R(-30, 7.5, 0.25, 1e3), R(0, 0, 3, 3)}
	pts := []Pt{{0, 0}, {33.3, 21.7}, {-1e3, 42}}
	for _, r := range rects {
		for _, p := range pts {
			back := WorldPointOf(CalcRelativePoint(p, r), r)
			if !back.Eq(p, 1e-9) {
				t.Fatalf("round trip %+v via %+v gave %+v", p, r, back)
			}
		}
	}
	if got := CalcRelativePoint(Pt{5, 5}, R(5, 0, 0, 10)); got.X != 0 || got.Y != 0.5 {
		t.Fatalf("degenerate width must map to 0, got %+v", got)
	}
}

func TestPointInPolygon(t *testing.T) {
	tri := []Pt{{0, 0}, {10, 0}, {0, 10}}
	if !PointInPolygon(Pt{2, 2}, tri) || PointInPolygon(Pt{8, 8}, tri) {
		t.Fatalf("unexpected polygon containment")
	}
	if PointInPolygon(Pt{1, 1}, tri[:2]) {
		t.Fatalf("two points are not a polygon")
	}
}

func TestPointInSegment(t *testing.T) {
	at, ok := PointInSegment(Pt{50, 3}, Pt{0, 0}, Pt{100, 0}, 4)
	if !ok || !at.Eq(Pt{50, 0}, 1e-9) {
		t.Fatalf("expected projection onto horizontal segment, got %+v %v", at, ok)
	}
	if _, ok := PointInSegment(Pt{110, 0}, Pt{0, 0}, Pt{100, 0}, 4); ok {
		t.Fatalf("point beyond the segment end must miss")
	}
	at, ok = PointInSegment(Pt{2, 30}, Pt{0, 0}, Pt{0, 100}, 4)
	if !ok || at != (Pt{0, 30}) {
		t.Fatalf("expected vertical special case, got %+v %v", at, ok)
	}
	if _, ok := PointInSegment(Pt{10, 17}, Pt{0, 0}, Pt{20, 20}, 4); ok {
		t.Fatalf("expected miss on diagonal")
	}
}

func TestSegmentsIntersect(t *testing.T) {
	if !SegmentsIntersect(Pt{0, 0}, Pt{10, 10}, Pt{0, 10}, Pt{10, 0}) {
		t.Fatalf("expected crossing")
	}
	if SegmentsIntersect(Pt{0, 0}, Pt{10, 0}, Pt{0, 1}, Pt{10, 1}) {
		t.Fatalf("parallel segments must not intersect")
	}
}

func TestSpecialAngleAndAngle(t *testing.T) {
	got := SpecialAngle(Pt{0, 0}, Pt{10, 1})
	if !got.Eq(Pt{math.Hypot(10, 1), 0}, 1e-3) {
		t.Fatalf("expected horizontal snap, got %+v", got)
	}
	got = SpecialAngle(Pt{0, 0}, Pt{10, 9})
	if math.Abs(got.X-got.Y) > 1e-3 {
		t.Fatalf("expected 45° snap, got %+v", got)
	}
	if a := Angle(Pt{0, -10}, Pt{}); math.Abs(a) > 1e-9 {
		t.Fatalf("up must be 0°, got %v", a)
	}
	if a := Angle(Pt{10, 0}, Pt{}); math.Abs(a-90) > 1e-9 {
		t.Fatalf("right must be 90°, got %v", a)
	}
}

func TestRectScaleAndBounds(t *testing.T) {
	r := R(10, 10, 10, 10).Scale(2, Pt{0, 0})
	if r != R(20, 20, 20, 20) {
		t.Fatalf("unexpected scaled rect %+v", r)
	}
	b := Rect{X: 0, Y: 0, W: 10, H: 10, Rotate: 90}.Bounds()
	if math.Abs(b.W-10) > 1e-9 || math.Abs(b.X) > 1e-9 {
		t.Fatalf("quarter turn of a square keeps its bounds, got %+v", b)
	}
	if FloatRound(1.23456, 2) != 1.23 {
		t.Fatalf("FloatRound")
	}
}

func TestRectUnionAndCorners(t *testing.T) {
	a := R(0, 0, 10, 10)
	u := a.Union(R(5, -5, 5, 10))
	if u.X != 0 || u.Y != -5 || u.W != 10 || u.H != 15 {
		t.Fatalf("unexpected union: %+v", u)
	}
	if m := a.Min(); m.X != 0 || m.Y != 0 {
		t.Fatalf("min wrong: %+v", m)
	}
	if m := a.Max(); m.X != 10 || m.Y != 10 {
		t.Fatalf("max wrong: %+v", m)
	}
	p := Rotate(math.Pi).Apply(Pt{1, 0})
	if math.Abs(p.X+1) > 1e-9 || math.Abs(p.Y) > 1e-9 {
		t.Fatalf("unexpected rotate result: %+v", p)
	}
	if FloatRound(1.23456, -1) != 1.23456 {
		t.Fatalf("negative places should be no-op")
	}
}
