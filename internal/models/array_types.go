package models

import (
	"database/sql/driver"

	"github.com/lib/pq"
)

// IntArray is a custom type for handling INTEGER[] arrays in PostgreSQL.
// Order is preserved, unlike SeatSet.
type IntArray []int

// Value implements the driver.Valuer interface
func (a IntArray) Value() (driver.Value, error) {
	if a == nil {
		return pq.Int64Array{}.Value()
	}
	arr := make(pq.Int64Array, len(a))
	for i, v := range a {
		arr[i] = int64(v)
	}
	return arr.Value()
}

// Scan implements the sql.Scanner interface
func (a *IntArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	var arr pq.Int64Array
	if err := arr.Scan(src); err != nil {
		return err
	}
	out := make(IntArray, len(arr))
	for i, v := range arr {
		out[i] = int(v)
	}
	*a = out
	return nil
}

// Set returns the values as a SeatSet
func (a IntArray) Set() SeatSet {
	return NewSeatSet(a...)
}
