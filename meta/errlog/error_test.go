package errlog

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimit(t *testing.T) {
	l := New(2)
	assert.False(t, l.Add(errors.New("first")))
	assert.False(t, l.LimitReached())
	assert.True(t, l.Add(errors.New("second")))
	assert.True(t, l.LimitReached())
	assert.Equal(t, 2, l.Len())
}

func TestUnlimited(t *testing.T) {
	l := New(0)
	for i := 0; i < 100; i++ {
		assert.False(t, l.Add(fmt.Errorf("err %d", i)))
	}
	assert.False(t, l.Add(nil))
	assert.Equal(t, 100, l.Len())
}

func TestConcurrentAdd(t *testing.T) {
	l := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Add(fmt.Errorf("worker %d", i))
		}(i)
	}
	wg.Wait()

	list := l.List()
	assert.Len(t, list, 8)
	list[0] = nil
	assert.NotNil(t, l.List()[0])
}
