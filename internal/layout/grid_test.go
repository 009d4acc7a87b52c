package layout

import "testing"

func TestSelectColumns_SinglePane(t *testing.T) {
	choice := SelectColumns(1, 174, 50, 60, 120, 15)
	if choice.Columns != 1 || choice.Rows != 1 {
		t.Fatalf("single pane should stay single column/row, got %+v", choice)
	}
}

func TestSelectColumns_PrefersQualifyingOverMax(t *testing.T) {
	// Two columns (74 wide, 24 tall) clear both minimums without exceeding
	// the max; three and four columns fall under minWidth=60, so the
	// qualifying two-column choice wins over the fallback's widest count.
	choice := SelectColumns(4, 150, 50, 60, 120, 15)
	if choice.Columns != 2 {
		t.Fatalf("expected 2 columns to win on score, got %d (%+v)", choice.Columns, choice)
	}
}

func TestSelectColumns_FallsBackWhenNothingQualifies(t *testing.T) {
	// Narrow window: no column count clears minWidth=60, so SelectColumns
	// must fall back to the widest column count still >= 80% of minWidth,
	// rather than returning a zero-value choice.
	choice := SelectColumns(6, 100, 50, 60, 120, 15)
	if choice.Columns == 0 {
		t.Fatalf("expected a non-zero fallback choice, got %+v", choice)
	}
	if choice.PaneWidth < (60*4)/5 {
		t.Fatalf("fallback pane width %d below 80%% of minWidth 60", choice.PaneWidth)
	}
}

func TestSelectColumns_ZeroPanes(t *testing.T) {
	choice := SelectColumns(0, 100, 50, 60, 120, 15)
	if choice != (ColumnChoice{}) {
		t.Fatalf("expected zero-value choice for n=0, got %+v", choice)
	}
}

func TestPaneSpan_ReservesBorders(t *testing.T) {
	// 3 columns across 100 cells: 2 border cells reserved, 98/3 = 32.
	if got := paneSpan(100, 3); got != 32 {
		t.Fatalf("paneSpan(100, 3) = %d, want 32", got)
	}
	if got := paneSpan(100, 1); got != 100 {
		t.Fatalf("paneSpan(100, 1) = %d, want 100", got)
	}
}

func TestComputeGrid_RemainderAbsorbedByLastRowAndColumn(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	choice := ColumnChoice{Columns: 2, Rows: 3, PaneWidth: 50, PaneHeight: 20}
	cells := ComputeGrid(ids, choice, 0, 0, 101, 61)

	if len(cells) != 5 {
		t.Fatalf("expected 5 cells, got %d", len(cells))
	}

	// Last row has a single pane ("e"); it should absorb all remaining width.
	last := cells[4]
	if last.PaneID != "e" {
		t.Fatalf("expected last cell to be pane e, got %s", last.PaneID)
	}
	if last.Width != 101 {
		t.Fatalf("expected last row's lone pane to absorb full width 101, got %d", last.Width)
	}

	// Sum of row heights should reach contentHeight exactly (no gap at the bottom).
	maxY := 0
	for _, c := range cells {
		if bottom := c.Y + c.Height; bottom > maxY {
			maxY = bottom
		}
	}
	if maxY != 61 {
		t.Fatalf("grid does not reach full content height: got %d, want 61", maxY)
	}
}

func TestComputeGrid_EmptyInput(t *testing.T) {
	if cells := ComputeGrid(nil, ColumnChoice{}, 0, 0, 100, 50); cells != nil {
		t.Fatalf("expected nil cells for empty input, got %v", cells)
	}
}
