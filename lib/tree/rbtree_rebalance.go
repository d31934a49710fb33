package tree

import "github.com/benz9527/rbindex/lib/infra"

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

im1: Current node X is root, repaint X into black.

im2: Current node X's parent P is black, nothing violated.

im3: If both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Loop to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im4: The parent P is red but the uncle U is black or NIL. (red-violation)
X is opposite direction to P. Rotate P to the opposite direction.
X and P swap roles, then enter im5 to fix.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im5: Current node is the same direction as parent.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]
*/
func (tree *rbTree[K]) insertRebalance(x *rbNode[K]) {
	for x != nil {
		p := x.parent
		if /* im1 */ p == nil {
			x.color = Black
			return
		}
		if /* im2 */ p.isBlack() {
			return
		}

		g := p.parent
		if g == nil {
			// impossible run to here, the root is never red
			panic( /* debug assertion */ infra.NewErrorStack("[rbtree] red parent without grandpa, violate (im3)"))
		}

		pDir := p.direction()
		var u *rbNode[K]
		if pDir == Left {
			u = g.right
		} else {
			u = g.left
		}

		if /* im3 */ u.isRed() {
			p.color = Black
			u.color = Black
			g.color = Red
			tree.stats.InsertRecolors++
			x = g
			continue
		}

		if /* im4 */ x.direction() != pDir {
			tree.rotate(p, pDir)
			x, p = p, x
			tree.stats.InsertInnerRotations++
		}

		/* im5 */
		p.color = Black
		g.color = Red
		switch pDir {
		case Left:
			tree.rightRotate(g)
		case Right:
			tree.leftRotate(g)
		default:
			// impossible run to here
			panic( /* debug assertion */ infra.NewErrorStack("[rbtree] insert violate (im5)"))
		}
		tree.stats.InsertOuterRotations++
		return
	}
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

X is the node occupying the vacated position, NIL allowed. P is its
parent, the vacated side tells on which side X hangs.
Sc is the same direction to X and it X's sibling's child node (near nephew).
Sd is the opposite direction to X and it X's sibling's child node (far nephew).

rm0: The removed color is red, nothing violated.
X is root or X is red, repaint X into black.

rm1: Current node X's sibling S is red, so the parent P, nephew node Sc and Sd
must be black. (Otherwise, red-violation)
(1) repaint S into black, P into red.
(2) X is left node of P, left rotate P. X is right node of P, right rotate P.
Continue with the new sibling (old Sc).

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [Sd]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: The sibling S, nephew node Sc and Sd are black.
Paint S into red to satisfy p4 locally, then loop to handle P.
A red P ends the loop there by being painted black.

	  {P}             {P}
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: Current node X's sibling S is black, nephew node Sc is red and Sd
is black. Ignore X's parent P's color (red or black is okay).
(1) Repaint S into red, Sc into black.
(2) If X is left node of P, right rotate S. Otherwise, left rotate S.
Enter into rm4 to fix.

	                        {P}                {P}
	  {P}                   / \                / \
	  / \    r-rotate(S)  [X] <Sc>   repaint  [X] [Sc]
	[X] [S]  ==========>        \    ======>       \
	    / \                     [S]                <S>
	  <Sc> [Sd]                   \                  \
	                              [Sd]               [Sd]

rm4: Current node X's sibling S is black, Sd is red.
Ignore X's parent P's color (red or black is okay).
(1) Repaint S into P's color, P into black and Sd into black.
(2) If X is left node of P, left rotate P. Otherwise, right rotate P.

	  {P}                   [S]                {S}
	  / \    l-rotate(P)    / \     repaint    / \
	[X] [S]  ==========>  {P} <Sd>  ======>  [P] [Sd]
	    / \               / \                / \
	 [Sc] <Sd>          [X] [Sc]           [X] [Sc]
*/
func (tree *rbTree[K]) removeRebalance(rm removal[K]) {
	if /* rm0 */ rm.color == Red {
		return
	}

	x, p, dir := rm.x, rm.parent, rm.side
	for {
		if /* rm0 */ p == nil || x.isRed() {
			if x != nil {
				x.color = Black
			}
			return
		}

		opposite := Right
		if dir == Right {
			opposite = Left
		}

		s := p.child(opposite)
		if s == nil {
			// impossible run to here, a double black node always has a sibling
			panic( /* debug assertion */ infra.NewErrorStack("[rbtree] double black node without sibling"))
		}

		if /* rm1 */ s.isRed() {
			s.color = Black
			p.color = Red
			tree.rotate(p, dir)
			tree.stats.RemoveSiblingRed++
			if s = p.child(opposite); s == nil {
				// impossible run to here
				panic( /* debug assertion */ infra.NewErrorStack("[rbtree] remove violate (rm1)"))
			}
		}

		sc, sd := s.child(dir), s.child(opposite)
		if /* rm2 */ sc.isBlack() && sd.isBlack() {
			s.color = Red
			tree.stats.RemoveRecolors++
			x = p
			p, dir = x.parent, x.direction()
			continue
		}

		if /* rm3 */ sd.isBlack() {
			sc.color = Black
			s.color = Red
			tree.rotate(s, opposite)
			tree.stats.RemoveNearNephew++
			s, sd = sc, s
		}

		/* rm4 */
		s.color = p.color
		p.color = Black
		sd.color = Black
		tree.rotate(p, dir)
		tree.stats.RemoveFarNephew++
		return
	}
}
