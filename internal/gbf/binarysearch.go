package gbf

// searchMatch is the result of searching a node's sorted key array: either
// the exact index holding the key, or the index it would be inserted at to
// keep the array sorted.
type searchMatch struct {
	found bool
	index int32
}

func foundMatch(index int32) searchMatch   { return searchMatch{found: true, index: index} }
func missingMatch(index int32) searchMatch { return searchMatch{found: false, index: index} }

// findKeyIndexSentinel runs an interior node's binary search: entry 0 always
// points to the leftmost child regardless of its nominal key, so it is never
// directly compared and the search range is [1, entryCount-1]. getKey must
// return the key stored at a given entry index.
//
// This shortcut only holds for interior nodes. Applying it to leaf nodes
// would make an exact lookup of a node's very first stored key always miss
// (min never reaches 0), which would break the fact that point lookup must
// agree with ascending iteration — see findKeyIndexFull.
func findKeyIndexSentinel(entryCount int32, key int64, getKey func(int32) (int64, error)) (searchMatch, error) {
	if entryCount == 0 {
		return missingMatch(0), nil
	}
	if entryCount == 1 {
		return foundMatch(0), nil
	}

	min, max := int32(1), entryCount-1
	for min <= max {
		i := (min + max) / 2
		k, err := getKey(i)
		if err != nil {
			return searchMatch{}, err
		}
		switch {
		case k == key:
			return foundMatch(i), nil
		case k < key:
			min = i + 1
		default:
			max = i - 1
		}
	}
	return missingMatch(min), nil
}

// findKeyIndexFull is a standard binary search over the whole entry array,
// used by leaf nodes (fixed- and var-record) where every index, including 0,
// holds a real record that must be an exact-match candidate.
func findKeyIndexFull(entryCount int32, key int64, getKey func(int32) (int64, error)) (searchMatch, error) {
	if entryCount == 0 {
		return missingMatch(0), nil
	}

	min, max := int32(0), entryCount-1
	for min <= max {
		i := (min + max) / 2
		k, err := getKey(i)
		if err != nil {
			return searchMatch{}, err
		}
		switch {
		case k == key:
			return foundMatch(i), nil
		case k < key:
			min = i + 1
		default:
			max = i - 1
		}
	}
	return missingMatch(min), nil
}
