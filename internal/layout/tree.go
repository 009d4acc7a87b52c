package layout

import (
	"fmt"
	"strings"
)

// node is one element of the nested container tree §4.4 step 2 describes:
// a leaf addresses a single pane by its tmux-assigned index, a container
// holds children split either horizontally ({}) or vertically ([]).
type node struct {
	w, h, x, y int
	paneIndex  int
	leaf       bool
	horizontal bool
	children   []*node
}

func leafNode(w, h, x, y, paneIndex int) *node {
	return &node{w: w, h: h, x: x, y: y, paneIndex: paneIndex, leaf: true}
}

func rowNode(cells []Cell, indexOf func(paneID string) int) *node {
	if len(cells) == 1 {
		c := cells[0]
		return leafNode(c.Width, c.Height, c.X, c.Y, indexOf(c.PaneID))
	}
	children := make([]*node, len(cells))
	for i, c := range cells {
		children[i] = leafNode(c.Width, c.Height, c.X, c.Y, indexOf(c.PaneID))
	}
	first, last := cells[0], cells[len(cells)-1]
	return &node{
		w: last.X + last.Width - first.X, h: first.Height,
		x: first.X, y: first.Y,
		horizontal: true,
		children:   children,
	}
}

func contentNode(cells []Cell, cols int, width, height, x, y int, indexOf func(paneID string) int) *node {
	var rows [][]Cell
	for i := 0; i < len(cells); i += cols {
		end := i + cols
		if end > len(cells) {
			end = len(cells)
		}
		rows = append(rows, cells[i:end])
	}

	if len(rows) == 1 {
		return rowNode(rows[0], indexOf)
	}

	children := make([]*node, len(rows))
	for i, r := range rows {
		children[i] = rowNode(r, indexOf)
	}
	return &node{w: width, h: height, x: x, y: y, children: children}
}

// render serializes the tree into the tmux custom-layout body (everything
// after the checksum prefix): "WxH,X,Y,paneIndex" for a leaf, or
// "WxH,X,Y{child,child,...}" / "WxH,X,Y[child,child,...]" for a container.
func (n *node) render() string {
	body := fmt.Sprintf("%dx%d,%d,%d", n.w, n.h, n.x, n.y)
	if n.leaf {
		return fmt.Sprintf("%s,%d", body, n.paneIndex)
	}
	parts := make([]string, len(n.children))
	for i, c := range n.children {
		parts[i] = c.render()
	}
	open, close := "{", "}"
	if !n.horizontal {
		open, close = "[", "]"
	}
	return body + open + strings.Join(parts, ",") + close
}

// buildLayoutString composes the full sidebar+content tree and prefixes
// it with tmux's 16-bit checksum, producing a string select-layout will
// accept verbatim.
func buildLayoutString(width, height, sidebarWidth int, sidebarPaneID string, cells []Cell, cols int, indexOf func(paneID string) int) string {
	sidebar := leafNode(sidebarWidth, height, 0, 0, indexOf(sidebarPaneID))

	contentX := sidebarWidth + 1
	contentWidth := width - contentX
	content := contentNode(cells, cols, contentWidth, height, contentX, 0, indexOf)

	root := &node{
		w: width, h: height, x: 0, y: 0,
		horizontal: true,
		children:   []*node{sidebar, content},
	}
	body := root.render()
	return fmt.Sprintf("%04x,%s", Checksum([]byte(body)), body)
}
