package safe

import (
	"BKConnect/logger"
)

// Go starts a goroutine that recovers from panic, so a panicking
// background task doesn't take the whole gateway down.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
