package event_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feirahub/feira/pkg/event"
)

func TestFireReachesAllListeners(t *testing.T) {
	t.Cleanup(event.Flush)

	var got []int
	event.Listen("test.fire", func(p interface{}) { got = append(got, p.(int)) })
	event.Listen("test.fire", func(p interface{}) { got = append(got, p.(int)*10) })

	event.Fire("test.fire", 3)

	assert.Equal(t, []int{3, 30}, got)
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	t.Cleanup(event.Flush)

	calls := 0
	cancel := event.Subscribe("test.cancel", func(interface{}) { calls++ })

	event.Fire("test.cancel", nil)
	cancel()
	event.Fire("test.cancel", nil)

	assert.Equal(t, 1, calls, "cancelled subscription must not receive events")
}

func TestCancelLeavesOtherSubscriptionsAlone(t *testing.T) {
	t.Cleanup(event.Flush)

	var a, b int
	cancelA := event.Subscribe("test.pair", func(interface{}) { a++ })
	event.Subscribe("test.pair", func(interface{}) { b++ })

	cancelA()
	cancelA() // double cancel is a no-op
	event.Fire("test.pair", nil)

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
}

func TestConcurrentSubscribeAndFire(t *testing.T) {
	t.Cleanup(event.Flush)

	var mu sync.Mutex
	seen := 0
	event.Listen("test.race", func(interface{}) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cancel := event.Subscribe("test.race", func(interface{}) {})
			event.Fire("test.race", nil)
			cancel()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 50, seen)
}
