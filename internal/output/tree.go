package output

import "strings"

// TreeNode represents a node in a tree structure for rendering
type TreeNode struct {
	ID       string
	Title    string
	Status   string
	Children []TreeNode
}

// TreeRenderOptions configures tree rendering behavior
type TreeRenderOptions struct {
	MaxDepth   int  // 0 = unlimited
	ShowStatus bool // Whether to show the status tag
}

// RenderTree renders a tree starting from a single root node
// Returns the complete tree as a string (without the root - just children)
func RenderTree(root TreeNode, opts TreeRenderOptions) string {
	lines := renderTreeNodes(root.Children, opts, 0, "")
	return strings.Join(lines, "\n")
}

// RenderTreeLines renders multiple root nodes and returns individual lines
func RenderTreeLines(roots []TreeNode, opts TreeRenderOptions) []string {
	return renderTreeNodes(roots, opts, 0, "")
}

// Chain nests nodes so each one is the child of the previous, for
// rendering supersede history
func Chain(nodes []TreeNode) []TreeNode {
	if len(nodes) == 0 {
		return nil
	}
	head := nodes[0]
	head.Children = Chain(nodes[1:])
	return []TreeNode{head}
}

func renderTreeNodes(nodes []TreeNode, opts TreeRenderOptions, depth int, prefix string) []string {
	if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
		return nil
	}

	var lines []string

	for i, node := range nodes {
		isLast := i == len(nodes)-1

		connector := "├── "
		if isLast {
			connector = "└── "
		}

		parts := []string{node.ID + ":", node.Title}
		if opts.ShowStatus && node.Status != "" {
			parts = append(parts, "["+node.Status+"]")
		}
		lines = append(lines, prefix+connector+strings.Join(parts, " "))

		childPrefix := prefix
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}

		lines = append(lines, renderTreeNodes(node.Children, opts, depth+1, childPrefix)...)
	}

	return lines
}
