package storage

import "io"

// Storage persists submitted card images so grading results can reference
// them by URL afterwards.
type Storage interface {
	SaveImage(data []byte) (string, error)
	OpenImage(name string) (io.ReadSeekCloser, error)
	DeleteImage(name string) error
}
