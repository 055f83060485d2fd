package keylock

import (
	"sync"
	"testing"
)

func TestStriped_SerializesSameKey(t *testing.T) {
	l := New(4)
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do("auction:a1", func() error {
				v := counter
				v++
				counter = v
				return nil
			})
		}()
	}
	wg.Wait()
	if counter != 200 {
		t.Fatalf("counter=%d want=200", counter)
	}
}

func TestStriped_SameKeySameStripe(t *testing.T) {
	l := New(16)
	if l.stripe("x") != l.stripe("x") {
		t.Fatalf("stripe lookup is not stable")
	}
}
