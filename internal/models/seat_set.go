package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lib/pq"
)

// SeatSet is a set of seat numbers with O(1) membership.
// It is stored as INTEGER[] and serialized to JSON as a sorted array.
type SeatSet map[int]struct{}

// NewSeatSet builds a set from the given seat numbers. Duplicates collapse.
func NewSeatSet(seats ...int) SeatSet {
	s := make(SeatSet, len(seats))
	for _, seat := range seats {
		s[seat] = struct{}{}
	}
	return s
}

// FullRange returns the set [1..total]
func FullRange(total int) SeatSet {
	s := make(SeatSet, total)
	for seat := 1; seat <= total; seat++ {
		s[seat] = struct{}{}
	}
	return s
}

// Contains reports whether seat is in the set
func (s SeatSet) Contains(seat int) bool {
	_, ok := s[seat]
	return ok
}

// Add inserts seats into the set
func (s SeatSet) Add(seats ...int) {
	for _, seat := range seats {
		s[seat] = struct{}{}
	}
}

// Remove deletes seats from the set
func (s SeatSet) Remove(seats ...int) {
	for _, seat := range seats {
		delete(s, seat)
	}
}

// Len returns the number of seats
func (s SeatSet) Len() int {
	return len(s)
}

// Sorted returns the seats in ascending order
func (s SeatSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for seat := range s {
		out = append(out, seat)
	}
	sort.Ints(out)
	return out
}

// Clone returns an independent copy
func (s SeatSet) Clone() SeatSet {
	out := make(SeatSet, len(s))
	for seat := range s {
		out[seat] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold exactly the same seats
func (s SeatSet) Equal(other SeatSet) bool {
	if len(s) != len(other) {
		return false
	}
	for seat := range s {
		if !other.Contains(seat) {
			return false
		}
	}
	return true
}

// Missing returns, in ascending order, the seats of want that are not in s
func (s SeatSet) Missing(want []int) []int {
	var out []int
	for _, seat := range want {
		if !s.Contains(seat) {
			out = append(out, seat)
		}
	}
	sort.Ints(out)
	return out
}

// MarshalJSON encodes the set as a sorted array
func (s SeatSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of seat numbers
func (s *SeatSet) UnmarshalJSON(data []byte) error {
	var seats []int
	if err := json.Unmarshal(data, &seats); err != nil {
		return err
	}
	*s = NewSeatSet(seats...)
	return nil
}

// Value implements the driver.Valuer interface
func (s SeatSet) Value() (driver.Value, error) {
	sorted := s.Sorted()
	arr := make(pq.Int64Array, len(sorted))
	for i, seat := range sorted {
		arr[i] = int64(seat)
	}
	return arr.Value()
}

// Scan implements the sql.Scanner interface
func (s *SeatSet) Scan(src interface{}) error {
	var arr pq.Int64Array
	if err := arr.Scan(src); err != nil {
		return fmt.Errorf("scan seat set: %w", err)
	}
	out := make(SeatSet, len(arr))
	for _, seat := range arr {
		out[int(seat)] = struct{}{}
	}
	*s = out
	return nil
}

// NormalizeSeats checks a requested seat list: it must be non-empty and
// hold distinct positive seat numbers. The result is sorted.
func NormalizeSeats(seats []int) ([]int, error) {
	if len(seats) == 0 {
		return nil, NewValidationError("at least one seat number is required")
	}

	seen := make(map[int]struct{}, len(seats))
	var invalid, duplicates []int
	for _, seat := range seats {
		if seat <= 0 {
			invalid = append(invalid, seat)
			continue
		}
		if _, ok := seen[seat]; ok {
			duplicates = append(duplicates, seat)
			continue
		}
		seen[seat] = struct{}{}
	}

	if len(invalid) > 0 {
		return nil, NewValidationError(fmt.Sprintf("seat numbers must be positive: %v", invalid))
	}
	if len(duplicates) > 0 {
		return nil, NewValidationError(fmt.Sprintf("seat numbers must be distinct, repeated: %v", duplicates))
	}

	out := make([]int, 0, len(seen))
	for seat := range seen {
		out = append(out, seat)
	}
	sort.Ints(out)
	return out, nil
}
