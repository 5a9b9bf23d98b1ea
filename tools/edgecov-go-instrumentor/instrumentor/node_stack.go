package instrumentor

import (
	"go/ast"
)

type Stack []ast.Node

func (s *Stack) IsEmpty() bool {
	return len(*s) == 0
}

func (s *Stack) Push(x ast.Node) {
	*s = append(*s, x)
}

// Pop removes and returns the top element, returning false when empty.
func (s *Stack) Pop() (ast.Node, bool) {
	if s.IsEmpty() {
		return nil, false
	}

	i := len(*s) - 1
	x := (*s)[i]
	*s = (*s)[:i]

	return x, true
}

// Peek returns the top element without removing it.
func (s *Stack) Peek() (ast.Node, bool) {
	if s.IsEmpty() {
		return nil, false
	}

	return (*s)[len(*s)-1], true
}
