package layout

// ColumnChoice is the result of the §4.4 step 1 column-selection scoring
// pass: the winning column/row count and the per-pane size it implies.
type ColumnChoice struct {
	Columns    int
	Rows       int
	PaneWidth  int
	PaneHeight int
}

type columnCandidate struct {
	columns, rows, width, height int
	score                        float64
}

// SelectColumns scores every candidate column count 1..n and picks the
// best-scoring one that clears both comfortable minimums (ported from the
// teacher's calculateGridDimensions balanced-grid heuristic, replaced with
// the spec's explicit width/height scoring instead of the teacher's fixed
// n-to-grid lookup table). If nothing qualifies outright, it falls back to
// the largest column count whose width is still at least 80% of the
// minimum comfortable width.
func SelectColumns(n, contentWidth, contentHeight, minWidth, maxWidth, minHeight int) ColumnChoice {
	if n <= 0 {
		return ColumnChoice{}
	}

	var best, bestFallback *columnCandidate

	for k := 1; k <= n; k++ {
		rows := (n + k - 1) / k
		w := paneSpan(contentWidth, k)
		h := paneSpan(contentHeight, rows)
		c := columnCandidate{columns: k, rows: rows, width: w, height: h}

		if w >= minWidth && h >= minHeight {
			widthScore := 1.0
			if w > maxWidth {
				widthScore = 0.5
			}
			heightScore := 0.7
			if h >= (minHeight*3)/2 {
				heightScore = 1.0
			}
			c.score = widthScore * heightScore
			if best == nil || c.score > best.score {
				cc := c
				best = &cc
			}
		}

		if w >= (minWidth*4)/5 {
			cc := c
			if bestFallback == nil || cc.columns > bestFallback.columns {
				bestFallback = &cc
			}
		}
	}

	chosen := best
	if chosen == nil {
		chosen = bestFallback
	}
	if chosen == nil {
		chosen = &columnCandidate{columns: 1, rows: n, width: paneSpan(contentWidth, 1), height: paneSpan(contentHeight, n)}
	}

	return ColumnChoice{Columns: chosen.columns, Rows: chosen.rows, PaneWidth: chosen.width, PaneHeight: chosen.height}
}

// paneSpan divides total cells across count slots after reserving one
// border cell between each pair of slots, matching tmux's own pane
// accounting (a border consumes a row/column between siblings).
func paneSpan(total, count int) int {
	if count <= 0 {
		return total
	}
	usable := total - (count - 1)
	if usable <= 0 {
		return 0
	}
	return usable / count
}

// Cell is one content pane's absolute rectangle within the window.
type Cell struct {
	PaneID        string
	X, Y          int
	Width, Height int
}

// ComputeGrid lays contentPaneIDs out into choice's column/row grid,
// absorbing rounding remainders into the last row and the last column of
// each row so the cells always sum exactly to the available space (the
// teacher's calculateGridLayout remainder-absorption rule, generalized
// from a fixed lookup grid to an arbitrary ColumnChoice).
func ComputeGrid(contentPaneIDs []string, choice ColumnChoice, originX, originY, contentWidth, contentHeight int) []Cell {
	n := len(contentPaneIDs)
	if n == 0 {
		return nil
	}
	cols, rows := choice.Columns, choice.Rows
	if cols <= 0 {
		cols = 1
	}
	if rows <= 0 {
		rows = n
	}

	cells := make([]Cell, 0, n)
	y := originY
	for row := 0; row < rows; row++ {
		start := row * cols
		if start >= n {
			break
		}
		end := start + cols
		if end > n {
			end = n
		}
		panesInRow := end - start

		h := choice.PaneHeight
		if row == rows-1 {
			h = contentHeight - (y - originY)
		}

		x := originX
		for col := 0; col < panesInRow; col++ {
			w := choice.PaneWidth
			if col == panesInRow-1 {
				w = contentWidth - (x - originX)
			}
			cells = append(cells, Cell{
				PaneID: contentPaneIDs[start+col],
				X:      x,
				Y:      y,
				Width:  w,
				Height: h,
			})
			x += w + 1
		}
		y += h + 1
	}
	return cells
}
