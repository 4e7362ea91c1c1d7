package ports

import "time"

// Clock supplies the calculation timestamp. Injecting a fixed clock makes
// metric reports byte-for-byte reproducible.
type Clock interface {
	Now() time.Time
}
