// ABOUTME: BFS over reverse edges from a live object back to discovered roots
// ABOUTME: Explains why an object survived a collection

package graph

// Path represents a path from an object to a root
type Path struct {
	IDs []ObjID // Sequence of object IDs from target to root
}

// PathsToRoots finds up to maxPaths paths from an object to any of roots
// using BFS. Shorter paths are found first.
func PathsToRoots(g Graph, roots map[ObjID]bool, from ObjID, maxPaths int) []Path {
	if maxPaths <= 0 {
		return nil
	}

	// Check if starting object is itself a root
	if roots[from] {
		return []Path{{IDs: []ObjID{from}}}
	}

	reverse := BuildReverseEdges(g)

	type searchNode struct {
		id   ObjID
		path []ObjID
	}

	var result []Path
	queue := []searchNode{{id: from, path: []ObjID{from}}}

	for len(queue) > 0 && len(result) < maxPaths {
		node := queue[0]
		queue = queue[1:]

		for _, referrerID := range reverse[node.id] {
			// Avoid cycles within a single path
			inPath := false
			for _, id := range node.path {
				if id == referrerID {
					inPath = true
					break
				}
			}
			if inPath {
				continue
			}

			newPath := make([]ObjID, len(node.path)+1)
			copy(newPath, node.path)
			newPath[len(node.path)] = referrerID

			if roots[referrerID] {
				result = append(result, Path{IDs: newPath})
				if len(result) >= maxPaths {
					break
				}
			} else {
				queue = append(queue, searchNode{
					id:   referrerID,
					path: newPath,
				})
			}
		}
	}

	return result
}
