/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

// Connect glues the connector anchor lineAnchor (by id) to node's anchor.
func (st *Store) Connect(node *Shape, nodeAnchor string, line *Shape, lineAnchor string) {
	if node == nil || line == nil || node == line {
		return
	}
	st.Disconnect(line, lineAnchor)
	for _, a := range []*Anchor{line.Anchor(lineAnchor), line.WorldAnchor(lineAnchor)} {
		if a != nil {
			a.ConnectTo, a.AnchorID = node.ID, nodeAnchor
		}
	}
	for _, cl := range node.ConnectedLines {
		if cl.LineID == line.ID && cl.LineAnchor == lineAnchor {
			return
		}
	}
	node.ConnectedLines = append(node.ConnectedLines, ConnectedLine{LineID: line.ID, LineAnchor: lineAnchor, Anchor: nodeAnchor})
}

// Disconnect releases the connector anchor from whatever it is glued to.
func (st *Store) Disconnect(line *Shape, lineAnchor string) {
	var target string
	for _, a := range []*Anchor{line.Anchor(lineAnchor), line.WorldAnchor(lineAnchor)} {
		if a != nil && a.ConnectTo != "" {
			target = a.ConnectTo
			a.ConnectTo, a.AnchorID = "", ""
		}
	}
	if node := st.Get(target); node != nil {
		node.ConnectedLines = removeLine(node.ConnectedLines, line.ID, lineAnchor)
	}
}

// SyncConnected moves every connector endpoint glued to s onto the anchor it
// is glued to. Entries whose connector or anchor vanished are dropped.
func (st *Store) SyncConnected(s *Shape) {
	if len(s.ConnectedLines) == 0 {
		return
	}
	kept := s.ConnectedLines[:0]
	for _, cl := range s.ConnectedLines {
		line := st.Get(cl.LineID)
		if line == nil {
			continue
		}
		if line.Calc.WorldAnchors == nil {
			// not resolved yet, e.g. added later in the same batch
			kept = append(kept, cl)
			continue
		}
		la := line.WorldAnchor(cl.LineAnchor)
		na := s.WorldAnchor(cl.Anchor)
		if la == nil || na == nil {
			continue
		}
		kept = append(kept, cl)
		if la.X == na.X && la.Y == na.Y {
			continue
		}
		la.X, la.Y = na.X, na.Y
		if err := st.InitLineRect(line); err != nil {
			st.log.Warn("connector update failed", "line", line.ID, "err", err)
		}
	}
	s.ConnectedLines = kept
}
