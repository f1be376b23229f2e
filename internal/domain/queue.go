package domain

import (
	"github.com/samber/lo"
)

// IndexOf returns the position of the track with the given ID in queue, or -1.
func IndexOf(queue []Track, id string) int {
	_, index, ok := lo.FindIndexOf(queue, func(t Track) bool {
		return t.ID == id
	})
	if !ok {
		return -1
	}
	return index
}

// ResolveIndex returns the index of track in queue, falling back to 0 when absent.
func ResolveIndex(queue []Track, track Track) int {
	if i := IndexOf(queue, track.ID); i >= 0 {
		return i
	}
	return 0
}

// NextIndex returns the index after i in a circular queue of length n.
func NextIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	return (i + 1) % n
}

// PrevIndex returns the index before i in a circular queue of length n.
func PrevIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	return ((i-1)%n + n) % n
}

// UpNext returns the tracks after index, or nil when there are none.
func UpNext(queue []Track, index int) []Track {
	if index < 0 || index+1 >= len(queue) {
		return nil
	}
	next := make([]Track, len(queue)-index-1)
	copy(next, queue[index+1:])
	return next
}
