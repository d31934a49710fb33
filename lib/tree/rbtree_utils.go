package tree

import (
	"errors"
	"strings"

	"go.uber.org/multierr"

	"github.com/benz9527/rbindex/lib/infra"
)

// InvalidBlackHeight is returned by Check on any violation.
const InvalidBlackHeight = -1

func isBlack[K infra.Integer](node RBNode[K]) bool {
	return node == nil || node.Color() == Black
}

func isRed[K infra.Integer](node RBNode[K]) bool {
	return node != nil && node.Color() == Red
}

func isRoot[K infra.Integer](node RBNode[K]) bool {
	return node != nil && node.Parent() == nil
}

// Check returns the black height of the tree, NIL leaves excluded,
// or InvalidBlackHeight once a violation is found.
// The root must be black, no red node has a red child and both
// subtrees of every node have the same black height.
func Check[K infra.Integer](tree RBTree[K]) int {
	return blackHeight[K](tree.Root())
}

// Validate reports whether Check finds no violation.
func Validate[K infra.Integer](tree RBTree[K]) bool {
	return Check[K](tree) != InvalidBlackHeight
}

func blackHeight[K infra.Integer](node RBNode[K]) int {
	if node == nil {
		return 0
	}
	if isRoot[K](node) && isRed[K](node) {
		return InvalidBlackHeight
	}

	l := blackHeight[K](node.Left())
	if l == InvalidBlackHeight {
		return InvalidBlackHeight
	}
	r := blackHeight[K](node.Right())
	if r == InvalidBlackHeight {
		return InvalidBlackHeight
	}

	if isRed[K](node) && (isRed[K](node.Left()) || isRed[K](node.Right())) {
		return InvalidBlackHeight
	}
	if l != r {
		return InvalidBlackHeight
	}
	if isBlack[K](node) {
		return l + 1
	}
	return l
}

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

// Inorder traversal to validate the rbtree red properties.
func RedViolationValidate[K infra.Integer](tree RBTree[K]) error {
	aux := tree.Root()
	if aux == nil {
		return nil
	}
	if isRed[K](aux) {
		return errors.New("rbtree red root violation")
	}

	stack := make([]RBNode[K], 0, tree.Len()>>1+1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.Left() {
		stack = append(stack, aux)
	}

	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; isRed[K](aux) {
			if isRed[K](aux.Left()) || isRed[K](aux.Right()) {
				return errors.New("rbtree red violation at key " + formatKey(aux.Key()))
			}
		}

		stack = stack[:size-1]
		for aux = aux.Right(); aux != nil; aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
	return nil
}

// BFS traversal to load all nodes with at least one NIL child.
func bfsLeaves[K infra.Integer](tree RBTree[K]) []RBNode[K] {
	aux := tree.Root()
	if aux == nil {
		return nil
	}

	leaves := make([]RBNode[K], 0, tree.Len()>>1+1)
	queue := make([]RBNode[K], 0, tree.Len()>>1+1)
	defer func() {
		clear(queue)
	}()
	queue = append(queue, aux)

	for len(queue) > 0 {
		aux = queue[0]
		l, r := aux.Left(), aux.Right()
		if /* nil leaves, keep one */ l == nil || r == nil {
			leaves = append(leaves, aux)
		}
		if l != nil {
			queue = append(queue, l)
		}
		if r != nil {
			queue = append(queue, r)
		}
		queue = queue[1:]
	}
	return leaves
}

func blackDepthToRoot[K infra.Integer](target RBNode[K]) int {
	depth := 0
	for aux := target; aux != nil; aux = aux.Parent() {
		if isBlack[K](aux) {
			depth++
		}
	}
	return depth
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

Each NIL leaf to root node black depth are equal.
*/
func BlackViolationValidate[K infra.Integer](tree RBTree[K]) error {
	leaves := bfsLeaves[K](tree)
	if leaves == nil {
		return nil
	}

	blackDepth := blackDepthToRoot[K](leaves[0])
	for i := 1; i < len(leaves); i++ {
		if blackDepthToRoot[K](leaves[i]) != blackDepth {
			return errors.New("rbtree black violation at key " + formatKey(leaves[i].Key()))
		}
	}
	return nil
}

// OrderViolationValidate checks the inorder keys are strictly increasing.
func OrderViolationValidate[K infra.Integer](tree RBTree[K]) (err error) {
	var prev K
	tree.Foreach(func(idx int64, color RBColor, key K) bool {
		if idx > 0 && key <= prev {
			err = errors.New("rbtree order violation at key " + formatKey(key))
			return false
		}
		prev = key
		return true
	})
	return err
}

// LinkViolationValidate checks every child points back to its parent.
func LinkViolationValidate[K infra.Integer](tree RBTree[K]) error {
	aux := tree.Root()
	if aux == nil {
		return nil
	}
	if aux.Parent() != nil {
		return errors.New("rbtree root has a parent")
	}

	stack := []RBNode[K]{aux}
	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		stack = stack[:size-1]
		for _, child := range []RBNode[K]{aux.Left(), aux.Right()} {
			if child == nil {
				continue
			}
			if child.Parent() != aux {
				return errors.New("rbtree link violation at key " + formatKey(child.Key()))
			}
			stack = append(stack, child)
		}
	}
	return nil
}

// ValidateAll runs every validator and combines the violations.
func ValidateAll[K infra.Integer](tree RBTree[K]) error {
	return multierr.Combine(
		RedViolationValidate[K](tree),
		BlackViolationValidate[K](tree),
		OrderViolationValidate[K](tree),
		LinkViolationValidate[K](tree),
	)
}

// RBNodeTrace is one entry of a preorder dump.
type RBNodeTrace[K infra.Integer] struct {
	Key       K
	Color     RBColor
	ParentKey K
	HasParent bool
}

// String renders key-color-p:parent, p:N for the root.
func (trace RBNodeTrace[K]) String() string {
	builder := strings.Builder{}
	builder.WriteString(formatKey(trace.Key))
	builder.WriteString("-")
	builder.WriteString(formatKey(trace.Color))
	builder.WriteString("-p:")
	if trace.HasParent {
		builder.WriteString(formatKey(trace.ParentKey))
	} else {
		builder.WriteString("N")
	}
	return builder.String()
}

// Preorder dumps the tree for diagnostics.
func Preorder[K infra.Integer](tree RBTree[K]) []RBNodeTrace[K] {
	aux := tree.Root()
	if aux == nil {
		return nil
	}

	traces := make([]RBNodeTrace[K], 0, tree.Len())
	stack := []RBNode[K]{aux}
	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		stack = stack[:size-1]
		trace := RBNodeTrace[K]{
			Key:   aux.Key(),
			Color: aux.Color(),
		}
		if p := aux.Parent(); p != nil {
			trace.ParentKey = p.Key()
			trace.HasParent = true
		}
		traces = append(traces, trace)
		if r := aux.Right(); r != nil {
			stack = append(stack, r)
		}
		if l := aux.Left(); l != nil {
			stack = append(stack, l)
		}
	}
	return traces
}

// PreorderString joins the preorder dump with spaces.
func PreorderString[K infra.Integer](tree RBTree[K]) string {
	traces := Preorder[K](tree)
	builder := strings.Builder{}
	for i, trace := range traces {
		if i > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(trace.String())
	}
	return builder.String()
}

// Keys returns the inorder keys.
func Keys[K infra.Integer](tree RBTree[K]) []K {
	keys := make([]K, 0, tree.Len())
	tree.Foreach(func(idx int64, color RBColor, key K) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}
