// ABOUTME: Builds reverse edges over the heap using each type's layout
// ABOUTME: Maps objects to their referrers for liveness explanations

package graph

// ReverseEdges maps each object to the objects that point to it
type ReverseEdges map[ObjID][]ObjID

// BuildReverseEdges creates a map of reverse edges.
// Objects with an unknown type code contribute no edges.
func BuildReverseEdges(g Graph) ReverseEdges {
	reverse := make(ReverseEdges)

	g.ForEachObject(func(obj *Object) {
		for _, targetID := range Refs(g, obj) {
			reverse[targetID] = append(reverse[targetID], obj.ID)
		}
	})

	return reverse
}
