/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestPath_QuadAndCubic_Bounds(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.QuadTo(10, 10, 20, 0)
	p.CubicTo(30, -10, 40, 10, 50, 0)
	p.Close()

	b := p.Bounds()
	if b.X != 0 || b.Y != -10 || b.W != 50 || b.H != 20 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestPath_FlattenRect(t *testing.T) {
	var p Path
	p.RectPath(R(0, 0, 10, 20))
	subs := p.Flatten(8)
	if len(subs) != 1 || !subs[0].Closed || len(subs[0].Pts) != 4 {
		t.Fatalf("unexpected flatten result: %+v", subs)
	}
}

func TestPath_FlattenEllipseStaysInBounds(t *testing.T) {
	var p Path
	r := R(10, 10, 40, 20)
	p.EllipsePath(r)
	for _, s := range p.Flatten(16) {
		for _, pt := range s.Pts {
			if !r.Inset(-0.01, -0.01).Contains(pt) {
				t.Fatalf("sample %+v escapes %+v", pt, r)
			}
		}
	}
}

func TestPath_Transform(t *testing.T) {
	var p Path
	p.MoveTo(1, 1)
	p.LineTo(2, 2)
	q := p.Transform(Translate(10, 0))
	if q.Cmds[0].Data[0] != 11 || q.Cmds[1].Data[0] != 12 || p.Cmds[0].Data[0] != 1 {
		t.Fatalf("unexpected transform: %+v", q.Cmds)
	}
}

func TestCubicPoints_Endpoints(t *testing.T) {
	pts := CubicPoints(Pt{0, 0}, Pt{0, 10}, Pt{10, 10}, Pt{10, 0}, 10)
	if len(pts) != 11 || pts[0] != (Pt{0, 0}) || !pts[10].Eq(Pt{10, 0}, 1e-9) {
		t.Fatalf("unexpected samples: %+v", pts)
	}
}
