package ipc

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferred_Resolve(t *testing.T) {
	table := NewDeferredTable()

	var delivered []Response
	d := table.Allocate(func(resp Response) {
		delivered = append(delivered, resp)
	})

	require.Equal(t, 1, table.Len())

	d.Resolve("done")

	require.Len(t, delivered, 1)
	assert.Equal(t, KindResult, delivered[0].Kind())
	assert.Equal(t, "done", delivered[0].Result())
	assert.Equal(t, 0, table.Len())

	// Settled slots are removed from the table.
	_, ok := table.Get(d.ID())
	assert.False(t, ok)
}

func TestDeferred_ResolveIsIdempotent(t *testing.T) {
	table := NewDeferredTable()

	var delivered []Response
	d := table.Allocate(func(resp Response) {
		delivered = append(delivered, resp)
	})

	d.Resolve("first")
	d.Resolve("second")
	d.Reject(CodeHandlerError, "too late")

	require.Len(t, delivered, 1)
	assert.Equal(t, "first", delivered[0].Result())
}

func TestDeferred_Reject(t *testing.T) {
	table := NewDeferredTable()

	var delivered []Response
	d := table.Allocate(func(resp Response) {
		delivered = append(delivered, resp)
	})

	d.Reject("Busy", "try again later")

	require.Len(t, delivered, 1)
	assert.True(t, delivered[0].IsError())
	// Caller-supplied code and message are preserved verbatim.
	assert.Equal(t, "Busy", delivered[0].ErrorCode())
	assert.Equal(t, "try again later", delivered[0].ErrorMessage())
}

func TestDeferred_ResolveBinary(t *testing.T) {
	table := NewDeferredTable()

	var delivered []Response
	d := table.Allocate(func(resp Response) {
		delivered = append(delivered, resp)
	})

	d.ResolveBinary([]byte("raw"))

	require.Len(t, delivered, 1)
	assert.Equal(t, KindBinary, delivered[0].Kind())
	assert.Equal(t, []byte("raw"), delivered[0].Body())
}

func TestDeferred_NilDeliverIsSafe(t *testing.T) {
	table := NewDeferredTable()
	d := table.Allocate(nil)
	d.Resolve("nobody listening")
	assert.Equal(t, 0, table.Len())
}

func TestDeferred_ConcurrentSettlement(t *testing.T) {
	table := NewDeferredTable()

	var count int32
	d := table.Allocate(func(Response) {
		atomic.AddInt32(&count, 1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				d.Resolve(i)
			} else {
				d.Reject(CodeHandlerError, "concurrent reject")
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestDeferredTable_ConcurrentAllocationAndSettlement(t *testing.T) {
	table := NewDeferredTable()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := table.Allocate(nil)
			d.Resolve("ok")
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, table.Len())
}
