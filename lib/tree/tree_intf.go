package tree

import "github.com/benz9527/rbindex/lib/infra"

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

//go:generate stringer -type=RBDirection
type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

// RemovePolicy selects which neighbor replaces a removed node that has
// two children.
//
//go:generate stringer -type=RemovePolicy
type RemovePolicy uint8

const (
	BorrowPred RemovePolicy = iota
	BorrowSucc
)

// NotFoundPolicy selects how Remove reacts to an absent key.
//
//go:generate stringer -type=NotFoundPolicy
type NotFoundPolicy uint8

const (
	ReportNotFound NotFoundPolicy = iota
	AbortOnNotFound
)

type RBTreeErr string

const (
	ErrKeyNotFound RBTreeErr = "[rbtree] key not found"
	ErrEmptyTree   RBTreeErr = "[rbtree] empty tree"
)

func (err RBTreeErr) Error() string {
	return string(err)
}

type RBNode[K infra.Integer] interface {
	Key() K
	Color() RBColor
	Left() RBNode[K]
	Right() RBNode[K]
	Parent() RBNode[K]
}

// RBTree is an ordered index over integer keys.
// It is not thread-safe. Callers own a tree exclusively or guard it
// with a mutex around every operation.
type RBTree[K infra.Integer] interface {
	Len() int64
	Root() RBNode[K]
	// Insert returns false if the key is already present.
	Insert(key K) bool
	Remove(key K) error
	RemoveWithPolicy(key K, policy RemovePolicy) error
	RemoveMin() (K, error)
	RemoveMax() (K, error)
	// Foreach walks the keys in order.
	Foreach(action func(idx int64, color RBColor, key K) bool)
	Stats() RBStats
	ResetStats()
	Release()
}
