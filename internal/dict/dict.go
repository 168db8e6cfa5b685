// Package dict builds the radix-indexed dictionaries ("index groups") that
// BRRES files use to look up named resources. The retail runtime walks the
// tree by testing single name bits selected by each node's bit id, so the
// construction below must pick exactly the bits the original tool picked —
// a different tie-break produces a file the game cannot traverse.
package dict

// Node is one dictionary entry as stored on disk. Index 0 is the root
// sentinel; user entries follow in insertion order.
type Node struct {
	ID    uint16
	Flag  uint16
	Left  uint16
	Right uint16
	Name  string
}

// EntrySize is the on-disk size of one node.
const EntrySize = 16

// HeaderSize is the on-disk size of the group header (size + count).
const HeaderSize = 8

// CalcDictionarySize returns the byte size of a group holding n named
// entries, including the root sentinel.
func CalcDictionarySize(n int) int {
	return HeaderSize + EntrySize*(n+1)
}

func highestBit(v uint8) uint16 {
	i := uint16(7)
	for i > 0 && v>>i&1 == 0 {
		i--
	}
	return i
}

// calcID returns the bit id distinguishing subject from object: the
// position of the highest bit where the names differ, encoded as
// byteIndex<<3 | bitIndex.
func calcID(object, subject string) uint16 {
	if len(object) < len(subject) {
		return uint16(len(subject)-1)<<3 | highestBit(subject[len(subject)-1])
	}
	for i := len(subject) - 1; i >= 0; i-- {
		if ch := object[i] ^ subject[i]; ch != 0 {
			return uint16(i)<<3 | highestBit(ch)
		}
	}
	return 0xFFFF
}

// idBit extracts the bit selected by id from name; bits past the end of
// the name read as zero.
func idBit(id uint16, name string) bool {
	charIdx := int(id >> 3)
	return charIdx < len(name) && name[charIdx]>>(id&7)&1 != 0
}

// Build constructs the node table for names using the retail insertion
// algorithm. The result is deterministic in the insertion order; on-disk
// entry order equals insertion order with the root sentinel first.
func Build(entries []string) []Node {
	nodes := make([]Node, 1, len(entries)+1)
	nodes[0] = Node{ID: 0xFFFF, Left: 0, Right: 0}

	for _, name := range entries {
		idx := uint16(len(nodes))
		nodes = append(nodes, Node{Name: name})
		insert(nodes, idx)
	}
	return nodes
}

func insert(list []Node, entryIdx uint16) {
	entry := &list[entryIdx]
	entry.ID = calcID("", entry.Name)
	entry.Left = entryIdx
	entry.Right = entryIdx

	prevIdx := uint16(0)
	prev := &list[prevIdx]
	currentIdx := prev.Left
	current := &list[currentIdx]
	isRight := false

	for entry.ID <= current.ID && current.ID < prev.ID {
		if entry.ID == current.ID {
			entry.ID = calcID(current.Name, entry.Name)
			if idBit(entry.ID, current.Name) {
				entry.Left = entryIdx
				entry.Right = currentIdx
			} else {
				entry.Left = currentIdx
			}
		}

		prevIdx = currentIdx
		prev = current
		isRight = idBit(current.ID, entry.Name)
		if isRight {
			currentIdx = current.Right
		} else {
			currentIdx = current.Left
		}
		current = &list[currentIdx]
	}

	if len(current.Name) == len(entry.Name) && idBit(entry.ID, current.Name) {
		entry.Right = currentIdx
	} else {
		entry.Left = currentIdx
	}

	if isRight {
		prev.Right = entryIdx
	} else {
		prev.Left = entryIdx
	}
}

// Lookup walks the tree the way the retail runtime does and returns the
// entry index holding name, or -1. Used by tests to prove traversability.
func Lookup(nodes []Node, name string) int {
	prev := &nodes[0]
	current := &nodes[prev.Left]
	currentIdx := prev.Left
	for current.ID < prev.ID {
		prev = current
		if idBit(current.ID, name) {
			currentIdx = current.Right
		} else {
			currentIdx = current.Left
		}
		current = &nodes[currentIdx]
	}
	if current.Name == name {
		return int(currentIdx)
	}
	return -1
}
