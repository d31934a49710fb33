package tree

import (
	"strconv"

	"github.com/benz9527/rbindex/lib/infra"
)

var _ RBTree[int64] = (*rbTree[int64])(nil)

type rbNode[K infra.Integer] struct {
	parent *rbNode[K]
	left   *rbNode[K]
	right  *rbNode[K]
	key    K
	color  RBColor
}

func (node *rbNode[K]) Key() K {
	return node.key
}

func (node *rbNode[K]) Color() RBColor {
	return node.color
}

func (node *rbNode[K]) Left() RBNode[K] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *rbNode[K]) Right() RBNode[K] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

func (node *rbNode[K]) Parent() RBNode[K] {
	if node == nil || node.parent == nil {
		return nil
	}
	return node.parent
}

// A nil node is the black NIL leaf.
func (node *rbNode[K]) isBlack() bool {
	return node == nil || node.color == Black
}

func (node *rbNode[K]) isRed() bool {
	return node != nil && node.color == Red
}

func (node *rbNode[K]) isRoot() bool {
	return node != nil && node.parent == nil
}

func (node *rbNode[K]) direction() RBDirection {
	if node == nil {
		// impossible run to here
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] nil leaf node without direction"))
	}

	if node.isRoot() {
		return Root
	}
	if node == node.parent.left {
		return Left
	}
	return Right
}

// child returns the left or right child. Root is not a child slot.
func (node *rbNode[K]) child(dir RBDirection) *rbNode[K] {
	switch dir {
	case Left:
		return node.left
	case Right:
		return node.right
	default:
	}
	// impossible run to here
	panic( /* debug assertion */ infra.NewErrorStack("[rbtree] unknown child direction " + dir.String()))
}

func (node *rbNode[K]) fixLink() {
	if node.left != nil {
		node.left.parent = node
	}
	if node.right != nil {
		node.right.parent = node
	}
}

func (node *rbNode[K]) minimum() *rbNode[K] {
	aux := node
	for ; aux != nil && aux.left != nil; aux = aux.left {
	}
	return aux
}

func (node *rbNode[K]) maximum() *rbNode[K] {
	aux := node
	for ; aux != nil && aux.right != nil; aux = aux.right {
	}
	return aux
}

func (node *rbNode[K]) unlink() {
	node.parent = nil
	node.left = nil
	node.right = nil
}

type rbTree[K infra.Integer] struct {
	root           *rbNode[K]
	count          int64
	rmPolicy       RemovePolicy
	notFoundPolicy NotFoundPolicy
	stats          RBStats
}

func (tree *rbTree[K]) Len() int64 {
	return tree.count
}

func (tree *rbTree[K]) Root() RBNode[K] {
	if tree.root == nil {
		return nil
	}
	return tree.root
}

func (tree *rbTree[K]) Stats() RBStats {
	return tree.stats
}

func (tree *rbTree[K]) ResetStats() {
	tree.stats = RBStats{}
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// p6. Keys in the left subtree < node key < keys in the right subtree.

// replace puts v into u's position under u's parent, or makes v the root.
// u keeps its own links, the caller decides what to do with them.
func (tree *rbTree[K]) replace(u, v *rbNode[K]) {
	switch dir := u.direction(); dir {
	case Root:
		tree.root = v
	case Left:
		u.parent.left = v
	case Right:
		u.parent.right = v
	default:
	}
	if v != nil {
		v.parent = u.parent
	}
}

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *rbTree[K]) leftRotate(x *rbNode[K]) {
	if x == nil || x.right == nil {
		// impossible run to here
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] left rotate node x is nil or x.right is nil"))
	}

	y := x.right
	tree.replace(x, y)
	x.right, y.left = y.left, x
	x.fixLink()
	y.fixLink()
	tree.stats.Rotations++
}

/*
			 |                         |
			 X                         S
			/ \     rightRotate(X)    / \
	       S   R    ============>    Sd  X
		  / \                           / \
		Sd   Sc                        Sc  R
*/
func (tree *rbTree[K]) rightRotate(x *rbNode[K]) {
	if x == nil || x.left == nil {
		// impossible run to here
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] right rotate node x is nil or x.left is nil"))
	}

	y := x.left
	tree.replace(x, y)
	x.left, y.right = y.right, x
	x.fixLink()
	y.fixLink()
	tree.stats.Rotations++
}

// rotate moves x down toward dir, its child on the opposite side takes
// x's position.
func (tree *rbTree[K]) rotate(x *rbNode[K], dir RBDirection) {
	switch dir {
	case Left:
		tree.leftRotate(x)
	case Right:
		tree.rightRotate(x)
	default:
		// impossible run to here
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] unknown rotate direction " + dir.String()))
	}
}

func (tree *rbTree[K]) search(key K) *rbNode[K] {
	for aux := tree.root; aux != nil; {
		res := infra.IntegerKeyCompare(key, aux.key)
		if res == 0 {
			return aux
		} else if res > 0 {
			aux = aux.right
		} else {
			aux = aux.left
		}
	}
	return nil
}

// Insert adds the key as a new red node and rebalances.
// A duplicate key leaves the tree untouched and returns false.
func (tree *rbTree[K]) Insert(key K) bool {
	z, ok := tree.insertBST(key)
	if !ok {
		return false
	}
	tree.insertRebalance(z)
	return true
}

// i1: Empty rbtree, the new node becomes the root (painted black by the rebalance).
// i2: Descend to a NIL position and hang a new red node there.
func (tree *rbTree[K]) insertBST(key K) (*rbNode[K], bool) {
	if /* i1 */ tree.root == nil {
		tree.root = &rbNode[K]{
			key:   key,
			color: Red,
		}
		tree.count++
		return tree.root, true
	}

	var x, y *rbNode[K] = tree.root, nil
	res := int64(0)
	for x != nil {
		y = x
		res = infra.IntegerKeyCompare(key, x.key)
		if /* equal */ res == 0 {
			return nil, false
		} else /* less */ if res < 0 {
			x = x.left
		} else /* greater */ {
			x = x.right
		}
	}

	z := &rbNode[K]{
		key:    key,
		color:  Red,
		parent: y,
	}
	if res < 0 {
		y.left = z
	} else {
		y.right = z
	}
	tree.count++
	return z, true
}

// removal describes the position vacated by a BST delete.
// x is nil when the vacated position is now a NIL leaf, the parent and
// side still locate it for the rebalance.
type removal[K infra.Integer] struct {
	x      *rbNode[K]
	parent *rbNode[K]
	side   RBDirection
	color  RBColor
}

func (tree *rbTree[K]) Remove(key K) error {
	return tree.RemoveWithPolicy(key, tree.rmPolicy)
}

func (tree *rbTree[K]) RemoveWithPolicy(key K, policy RemovePolicy) error {
	if policy != BorrowPred && policy != BorrowSucc {
		return infra.NewErrorStack("[rbtree] unknown remove policy " + policy.String())
	}

	z := tree.search(key)
	if z == nil {
		err := infra.WrapErrorStackWithMessage(ErrKeyNotFound, "[rbtree] remove key "+formatKey(key))
		if tree.notFoundPolicy == AbortOnNotFound {
			panic(err)
		}
		return err
	}

	tree.removeRebalance(tree.removeBST(z, policy))
	return nil
}

func (tree *rbTree[K]) RemoveMin() (K, error) {
	if tree.root == nil {
		var zero K
		return zero, ErrEmptyTree
	}
	z := tree.root.minimum()
	key := z.key
	tree.removeRebalance(tree.removeBST(z, tree.rmPolicy))
	return key, nil
}

func (tree *rbTree[K]) RemoveMax() (K, error) {
	if tree.root == nil {
		var zero K
		return zero, ErrEmptyTree
	}
	z := tree.root.maximum()
	key := z.key
	tree.removeRebalance(tree.removeBST(z, tree.rmPolicy))
	return key, nil
}

/*
r1: Current node Z has left and right node.
Find Z's pred or succ Y, copy Y's key into Z and remove Y instead.
Y has at most one child.

Find pred:

	  |                    |
	  Z                    Y
	 / \                  / \
	L  ..   copy(Y, Z)   L  ..
	 \      =========>    \
	  Y                    Z (removed)

Find succ:

	  |                    |
	  Z                    Y
	 / \                  / \
	..  R   copy(Y, Z)   ..  R
	   /    =========>      /
	  Y                    Z (removed)

r2: Y is a leaf, detach it. Its slot becomes a NIL leaf.

r3: Y has one child, promote the child into Y's slot.
The child must be red, otherwise black-violation before removal.
*/
func (tree *rbTree[K]) removeBST(z *rbNode[K], policy RemovePolicy) removal[K] {
	y := z
	if /* r1 */ z.left != nil && z.right != nil {
		if policy == BorrowSucc {
			y = z.right.minimum()
		} else {
			y = z.left.maximum()
		}
		z.key = y.key
	}

	var child *rbNode[K]
	if y.left != nil {
		child = y.left
	} else {
		child = y.right
	}

	rm := removal[K]{
		x:      child,
		parent: y.parent,
		side:   y.direction(),
		color:  y.color,
	}
	/* r2, r3 */ tree.replace(y, child)
	y.unlink()
	tree.count--
	return rm
}

// Foreach walks the tree inorder.
func (tree *rbTree[K]) Foreach(action func(idx int64, color RBColor, key K) bool) {
	aux := tree.root
	if aux == nil {
		return
	}

	stack := make([]*rbNode[K], 0, tree.count>>1+1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; !action(idx, aux.color, aux.key) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = aux.right; aux != nil; aux = aux.left {
			stack = append(stack, aux)
		}
	}
}

// Release drops every node and clears their links.
func (tree *rbTree[K]) Release() {
	aux := tree.root
	tree.root = nil
	if aux == nil {
		return
	}

	stack := make([]*rbNode[K], 0, tree.count>>1+1)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, aux)
	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		stack = stack[:size-1]
		if aux.left != nil {
			stack = append(stack, aux.left)
		}
		if aux.right != nil {
			stack = append(stack, aux.right)
		}
		aux.unlink()
		tree.count--
	}
}

func formatKey[K infra.Integer](key K) string {
	if key < 0 {
		return strconv.FormatInt(int64(key), 10)
	}
	return strconv.FormatUint(uint64(key), 10)
}

type RBTreeOpt[K infra.Integer] func(*rbTree[K])

func WithRBTreeRemoveBorrowSucc[K infra.Integer]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.rmPolicy = BorrowSucc
	}
}

func WithRBTreeNotFoundPolicy[K infra.Integer](policy NotFoundPolicy) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.notFoundPolicy = policy
	}
}

func NewRBTree[K infra.Integer](opts ...RBTreeOpt[K]) RBTree[K] {
	tree := &rbTree[K]{
		rmPolicy:       BorrowPred,
		notFoundPolicy: ReportNotFound,
	}

	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}
	return tree
}
