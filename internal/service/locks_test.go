package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomLocks_SerializePerCode(t *testing.T) {
	l := newRoomLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running = map[string]int{}
		maxSeen = map[string]int{}
	)
	for i := range 40 {
		code := "AAAA"
		if i%2 == 1 {
			code = "BBBB"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock(code)
			mu.Lock()
			running[code]++
			if running[code] > maxSeen[code] {
				maxSeen[code] = running[code]
			}
			mu.Unlock()

			mu.Lock()
			running[code]--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen["AAAA"])
	assert.Equal(t, 1, maxSeen["BBBB"])
	assert.Zero(t, l.len())
}
