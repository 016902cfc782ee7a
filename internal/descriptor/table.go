// Package descriptor allocates small integer descriptors for host resources,
// lowest free value first, the way POSIX allocates file descriptors.
package descriptor

import "math/bits"

// Table maps descriptors to items. Occupancy is tracked in 64-bit masks so
// that finding the lowest free descriptor does not need to scan items.
//
// The zero value is an empty table ready to use. A Table is not
// goroutine-safe: callers guard it.
type Table[Key ~int32, Item any] struct {
	masks []uint64
	items []Item
}

// Len returns the number of items in the table.
func (t *Table[Key, Item]) Len() (n int) {
	for _, mask := range t.masks {
		n += bits.OnesCount64(mask)
	}
	return n
}

// grow ensures the table can hold at least n items.
func (t *Table[Key, Item]) grow(n int) {
	if n = (n + 63) / 64; n > len(t.masks) {
		masks := make([]uint64, n)
		copy(masks, t.masks)

		items := make([]Item, n*64)
		copy(items, t.items)

		t.masks = masks
		t.items = items
	}
}

// Insert inserts the item at the lowest free key, returning false when the
// key space is exhausted.
func (t *Table[Key, Item]) Insert(item Item) (key Key, ok bool) {
	for {
		for index, mask := range t.masks {
			if ^mask == 0 {
				continue
			}
			shift := bits.TrailingZeros64(^mask)
			key = Key(index)*64 + Key(shift)
			if key < 0 {
				return 0, false
			}
			t.items[key] = item
			t.masks[index] = mask | uint64(1)<<shift
			return key, true
		}

		n := 2 * len(t.masks)
		if n == 0 {
			n = 1
		}
		t.grow(n * 64)
	}
}

// InsertAt inserts the item at key, replacing any existing one. It returns
// false when key is negative.
func (t *Table[Key, Item]) InsertAt(item Item, key Key) bool {
	if key < 0 {
		return false
	}
	t.grow(int(key) + 1)
	index, shift := key/64, key%64
	t.masks[index] |= uint64(1) << shift
	t.items[key] = item
	return true
}

// Lookup returns the item associated with the key, if present.
func (t *Table[Key, Item]) Lookup(key Key) (item Item, found bool) {
	if key < 0 {
		return
	}
	if index, shift := key/64, key%64; int(index) < len(t.masks) {
		if t.masks[index]&(uint64(1)<<shift) != 0 {
			item, found = t.items[key], true
		}
	}
	return
}

// Delete deletes the item at key, if present.
func (t *Table[Key, Item]) Delete(key Key) {
	if key < 0 {
		return
	}
	if index, shift := key/64, key%64; int(index) < len(t.masks) {
		if mask := t.masks[index]; mask&(uint64(1)<<shift) != 0 {
			var zero Item
			t.items[key] = zero
			t.masks[index] = mask &^ (uint64(1) << shift)
		}
	}
}

// Range calls f for each item and its key in the table, in key order. It
// stops when f returns false.
func (t *Table[Key, Item]) Range(f func(Key, Item) bool) {
	for i, mask := range t.masks {
		for mask != 0 {
			shift := bits.TrailingZeros64(mask)
			key := Key(i)*64 + Key(shift)
			if !f(key, t.items[key]) {
				return
			}
			mask &^= uint64(1) << shift
		}
	}
}

// Reset clears the table, keeping its memory for reuse.
func (t *Table[Key, Item]) Reset() {
	for i := range t.masks {
		t.masks[i] = 0
	}
	var zero Item
	for i := range t.items {
		t.items[i] = zero
	}
}
