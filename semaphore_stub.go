//go:build !linux && !darwin

package namedsem

import "errors"

// ErrSemaphoresNotAvailable is returned when named semaphore operations
// are attempted on a platform without a FIFO-backed implementation.
var ErrSemaphoresNotAvailable = errors.New("named semaphores are not available on this platform")

func semCreate(name string, initial uint) (Semaphore, error) {
	return nil, ErrSemaphoresNotAvailable
}

func semOpen(name string) (Semaphore, error) {
	return nil, ErrSemaphoresNotAvailable
}

func semUnlink(name string) error {
	return ErrSemaphoresNotAvailable
}

func semStat(name string) (*SemaphoreInfo, error) {
	return nil, ErrSemaphoresNotAvailable
}
