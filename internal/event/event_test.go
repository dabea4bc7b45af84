package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeString(t *testing.T) {
	assert.Equal(t, "FileCopied", FileCopied.String())
	assert.Equal(t, "ScanComplete", ScanComplete.String())
	assert.Equal(t, "Unknown", Type(0).String())
	assert.Equal(t, "Unknown", Type(99).String())
}

func TestEmitNilChannel(t *testing.T) {
	// Must not panic.
	Emit(nil, Event{Type: FileCopied})
}

func TestEmitDropsWhenFull(t *testing.T) {
	ch := make(chan Event, 1)
	Emit(ch, Event{Type: FileCopied, Path: "a"})
	Emit(ch, Event{Type: FileCopied, Path: "b"}) // dropped, does not block

	ev := <-ch
	assert.Equal(t, "a", ev.Path)
	assert.False(t, ev.Timestamp.IsZero())
}
