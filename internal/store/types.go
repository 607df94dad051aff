package store

import "time"

// Sample is one timestamped observation of migration progress.
type Sample struct {
	ID        int64     // insertion sequence, breaks ties between equal timestamps
	Timestamp time.Time // when the value was observed
	Progress  float64   // fraction in [0, 1]
}

// Storage defines the interface for the sample ledger.
// Samples are append-only: nothing is ever updated or deleted.
type Storage interface {
	// Append persists a sample and assigns its ID. The write is durable
	// once Append returns nil.
	Append(sample *Sample) error

	// Earliest returns the oldest sample, or nil if the store is empty.
	Earliest() (*Sample, error)
	// Latest returns the newest sample, or nil if the store is empty.
	Latest() (*Sample, error)

	// Range returns samples with from <= Timestamp <= to in ascending order.
	// A zero time leaves that side of the range open.
	Range(from, to time.Time) ([]Sample, error)

	Count() (int, error)

	Close() error
}
