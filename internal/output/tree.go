// Package output renders trees, tables and log messages for the terminal.
package output

import (
	"strings"
)

const (
	treeEmpty  = "  "
	treeEdge   = "└─"
	treePipe   = "│ "
	treeBranch = "├─"
)

// TreeNode is a node in a rendered tree.
//
// Children are handles, not owned subtrees: the same *TreeNode may be attached
// under several parents and is rendered under each of them.
type TreeNode struct {
	Label    []string
	Children []*TreeNode
}

// NewTreeNode creates a leaf. Multi-line labels are split on newlines.
func NewTreeNode(label ...string) *TreeNode {
	var lines []string
	for _, l := range label {
		lines = append(lines, strings.Split(l, "\n")...)
	}
	return &TreeNode{Label: lines}
}

// AddChild attaches a child handle
func (n *TreeNode) AddChild(child *TreeNode) *TreeNode {
	n.Children = append(n.Children, child)
	return n
}

// String renders the tree with box-drawing characters
func (n *TreeNode) String() string {
	var sb strings.Builder
	writeTreeNode(&sb, n, nil)
	return sb.String()
}

// writeTreeNode renders one node. level holds, for each ancestor depth, how
// many siblings (including the current one) were still left to render.
func writeTreeNode(sb *strings.Builder, node *TreeNode, level []int) {
	maxpos := len(level)
	var secondLine strings.Builder
	for pos, remaining := range level {
		prefix := ""
		if pos != 0 {
			prefix = " "
		}
		lastRow := pos == maxpos-1
		secondLine.WriteString(prefix)
		if remaining == 1 {
			if lastRow {
				sb.WriteString(prefix + treeEdge)
			} else {
				sb.WriteString(prefix + treeEmpty)
			}
			secondLine.WriteString(treeEmpty)
		} else {
			if lastRow {
				sb.WriteString(prefix + treeBranch)
			} else {
				sb.WriteString(prefix + treePipe)
			}
			secondLine.WriteString(treePipe)
		}
	}

	prefix := ""
	if maxpos != 0 {
		prefix = " "
	}
	for i, line := range node.Label {
		if i == 0 {
			sb.WriteString(prefix + line + "\n")
		} else {
			sb.WriteString(secondLine.String() + prefix + line + "\n")
		}
	}
	if len(node.Label) == 0 {
		sb.WriteString("\n")
	}

	remaining := len(node.Children)
	for _, child := range node.Children {
		writeTreeNode(sb, child, append(level, remaining))
		remaining--
	}
}
