// Package deque provides a slice-backed queue with value semantics.
package deque

// Deque is a slice-backed double-ended queue.
type Deque[Elem any] struct {
	el []Elem
	// left is the position of the leftmost valid element in el.
	// left >= len(el) implies the deque is empty.
	left int
}

// Len returns the number of elements in the deque.
func (d Deque[Elem]) Len() int {
	return len(d.el) - d.left
}

// Append adds elements to the end of the deque.
func (d Deque[Elem]) Append(ee ...Elem) Deque[Elem] {
	d.el = append(d.el, ee...)
	return d
}

// Front returns the first element of the deque.
// The second result is false if the deque is empty.
func (d Deque[Elem]) Front() (Elem, bool) {
	if d.Len() <= 0 {
		var zero Elem
		return zero, false
	}
	return d.el[d.left], true
}

// DropFront removes n elements from the front of the deque.
// If n is negative, there is no change.
// If n is larger than the deque's size, the result is empty.
func (d Deque[Elem]) DropFront(n int) Deque[Elem] {
	if n <= 0 {
		return d
	}
	if n >= d.Len() {
		return d.Reset()
	}
	clear(d.el[d.left : d.left+n])
	d.left += n
	// Slide the live elements down once the dead prefix dominates so that a
	// long-lived queue doesn't keep growing.
	if d.left > len(d.el)/2 {
		k := copy(d.el, d.el[d.left:])
		clear(d.el[k:])
		d.el = d.el[:k]
		d.left = 0
	}
	return d
}

// Reset removes all elements from the deque, retaining its memory.
func (d Deque[Elem]) Reset() Deque[Elem] {
	clear(d.el)
	d.el = d.el[:0]
	d.left = 0
	return d
}
