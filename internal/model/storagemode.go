package model

import (
	"fmt"
	"time"
)

// StorageMode is the write policy of a document type. It cannot change once the type is created.
type StorageMode int

const (
	StorageModeWriteOnceReadMany StorageMode = iota + 1
	StorageModeTemporary
	StorageModeEditable
	StorageModeVersioned
	StorageModeReplaceable

	// StorageModeCount bounds the mode values; lookup tables indexed by mode use it as their length.
	StorageModeCount
)

var storageModeNames = [StorageModeCount]string{
	StorageModeWriteOnceReadMany: "WriteOnceReadMany",
	StorageModeTemporary:         "Temporary",
	StorageModeEditable:          "Editable",
	StorageModeVersioned:         "Versioned",
	StorageModeReplaceable:       "Replaceable",
}

// Valid reports whether m is a known mode.
func (m StorageMode) Valid() bool {
	return m > 0 && m < StorageModeCount
}

// Replaceable reports whether documents in this mode may be overwritten in place.
func (m StorageMode) Replaceable() bool {
	switch m {
	case StorageModeReplaceable, StorageModeTemporary, StorageModeEditable:
		return true
	default:
		return false
	}
}

func (m StorageMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("StorageMode(%d)", int(m))
	}
	return storageModeNames[m]
}

// DocumentLifetime is how long a document may stay inactive before it expires.
type DocumentLifetime int

const (
	LifetimeNever DocumentLifetime = iota
	LifetimeOneDay
	LifetimeOneWeek
	LifetimeOneMonth
	LifetimeThreeMonths
	LifetimeSixMonths
	LifetimeOneYear
	LifetimeTwoYears
	LifetimeSevenYears

	lifetimeCount
)

// calendar offset as years, months, days
var lifetimeOffsets = [lifetimeCount][3]int{
	LifetimeOneDay:      {0, 0, 1},
	LifetimeOneWeek:     {0, 0, 7},
	LifetimeOneMonth:    {0, 1, 0},
	LifetimeThreeMonths: {0, 3, 0},
	LifetimeSixMonths:   {0, 6, 0},
	LifetimeOneYear:     {1, 0, 0},
	LifetimeTwoYears:    {2, 0, 0},
	LifetimeSevenYears:  {7, 0, 0},
}

// Valid reports whether l is a known lifetime.
func (l DocumentLifetime) Valid() bool {
	return l >= 0 && l < lifetimeCount
}

// Bounded reports whether documents with this lifetime expire.
func (l DocumentLifetime) Bounded() bool {
	return l != LifetimeNever && l.Valid()
}

// ExpiresAt returns the expiration time for a document created at from.
// ok is false for unbounded or unknown lifetimes.
func (l DocumentLifetime) ExpiresAt(from time.Time) (t time.Time, ok bool) {
	if !l.Bounded() {
		return time.Time{}, false
	}
	o := lifetimeOffsets[l]
	return from.AddDate(o[0], o[1], o[2]), true
}
