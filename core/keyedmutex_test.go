package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_Lock(t *testing.T) {
	km := NewKeyedMutex()

	unlock := km.Lock("u1")
	assert.Equal(t, 1, km.Len())

	// other keys are not blocked
	done := make(chan struct{})
	go func() {
		km.Lock("u2")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Lock(u2) blocked by u1")
	}

	// same key waits
	acquired := make(chan struct{})
	go func() {
		km.Lock("u1")()
		close(acquired)
	}()
	select {
	case <-acquired:
		t.Fatal("Lock(u1) acquired while held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Lock(u1) never acquired after unlock")
	}
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_serializes(t *testing.T) {
	km := NewKeyedMutex()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("same")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, km.Len())
}
