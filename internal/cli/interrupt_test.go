package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestNewInterruptHandler(t *testing.T) {
	tests := []struct {
		writer io.Writer
		name   string
	}{
		{
			name:   "with custom writer",
			writer: &bytes.Buffer{},
		},
		{
			name:   "with nil writer",
			writer: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewInterruptHandler(tt.writer)
			assert.NotNil(t, handler)
			assert.NotNil(t, handler.writer)
			assert.False(t, handler.interrupted)
		})
	}
}

func TestInterruptHandler_Signal(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output)

	signals := make(chan os.Signal, 1)
	ctx, cancel := handler.watch(context.Background(), "Batch creation", signals)
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatal("Context should not be canceled initially")
	default:
	}

	signals <- os.Interrupt

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Context should be canceled after an interrupt")
	}

	assert.Eventually(t, handler.WasInterrupted, time.Second, 10*time.Millisecond)
	outputStr := output.String()
	assert.Contains(t, outputStr, "Batch creation interrupted!")
	assert.Contains(t, outputStr, "Completed work has been saved")
}

func TestInterruptHandler_ParentCancel(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output)

	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := handler.watch(parent, "Sync", make(chan os.Signal))
	defer cancel()

	cancelParent()
	<-ctx.Done()

	// Give the watcher time to exit.
	time.Sleep(20 * time.Millisecond)

	assert.False(t, handler.WasInterrupted(), "parent cancellation is not an interrupt")
	assert.Empty(t, output.String())
}

func TestHandleInterrupts_StopReleasesContext(t *testing.T) {
	handler := NewInterruptHandler(&syncBuffer{})

	ctx, stop := handler.HandleInterrupts(context.Background(), "Sync")
	stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stop should cancel the context")
	}
	assert.False(t, handler.WasInterrupted())
}

func TestShowInterruptMessage(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		expected  []string
	}{
		{
			name:      "named operation",
			operation: "Sync",
			expected:  []string{"Sync interrupted!", "Run the command again"},
		},
		{
			name:      "default name",
			operation: "",
			expected:  []string{"Operation interrupted!"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			handler := &InterruptHandler{
				writer:    &output,
				operation: tt.operation,
			}

			handler.showInterruptMessage()

			outputStr := output.String()
			for _, expected := range tt.expected {
				assert.Contains(t, outputStr, expected)
			}
		})
	}
}
