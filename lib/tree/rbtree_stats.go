package tree

// RBStats counts the rebalance cases hit since the tree was created
// or since the last ResetStats.
type RBStats struct {
	// Uncle is red, push the red-violation up to grandpa.
	InsertRecolors int64
	// Inner grandchild, rotated into the outer shape first.
	InsertInnerRotations int64
	// Outer grandchild, rotate at grandpa.
	InsertOuterRotations int64
	// Sibling is red.
	RemoveSiblingRed int64
	// Sibling and both nephews are black, push the double black up.
	RemoveRecolors int64
	// Near nephew is red, far nephew is black.
	RemoveNearNephew int64
	// Far nephew is red.
	RemoveFarNephew int64
	Rotations       int64
}

func (stats RBStats) InsertFixups() int64 {
	return stats.InsertRecolors + stats.InsertInnerRotations + stats.InsertOuterRotations
}

func (stats RBStats) RemoveFixups() int64 {
	return stats.RemoveSiblingRed + stats.RemoveRecolors + stats.RemoveNearNephew + stats.RemoveFarNephew
}
