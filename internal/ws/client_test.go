package ws

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestClientCloseConcurrent(t *testing.T) {
	c := NewClient(uuid.New(), "u", nil, testLogger())

	// close вызывается из readPump и из Enqueue на чужих горутинах,
	// повторное закрытие канала не должно приводить к панике
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.close()
		}()
	}
	wg.Wait()

	select {
	case <-c.done:
	default:
		t.Fatal("done channel must be closed")
	}
}

func TestEnqueueOverflowConcurrent(t *testing.T) {
	c := NewClient(uuid.New(), "u", nil, testLogger())

	for i := 0; i < sendBufferSize; i++ {
		c.Enqueue([]byte("x"))
	}

	// Переполненная очередь отключает клиента; конкурентные отправители
	// наперегонки доходят до close одновременно
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Enqueue([]byte("y"))
		}()
	}
	wg.Wait()

	select {
	case <-c.done:
	default:
		t.Fatal("overflow must close the client")
	}
}

func TestEnqueueAfterCloseIsNoop(t *testing.T) {
	c := NewClient(uuid.New(), "u", nil, testLogger())
	c.close()

	c.Enqueue([]byte("late"))
	assert.Empty(t, c.send)
}
