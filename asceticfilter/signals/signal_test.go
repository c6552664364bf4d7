package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleEvent struct {
	value int
}

func TestSignal_NotifyCallsObserversInOrder(t *testing.T) {
	s := NewSignal[sampleEvent]()
	var calls []string
	s.Attach(func(e sampleEvent) { calls = append(calls, "first") }, "first")
	s.Attach(func(e sampleEvent) { calls = append(calls, "second") }, "second")

	s.Notify(sampleEvent{1})
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestSignal_AttachSameIDOnce(t *testing.T) {
	s := NewSignal[sampleEvent]()
	count := 0
	observer := Observer[sampleEvent](func(e sampleEvent) { count++ })
	s.Attach(observer, "obs")
	s.Attach(observer, "obs")

	s.Notify(sampleEvent{1})
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, s.Len())
}

func TestSignal_Detach(t *testing.T) {
	s := NewSignal[sampleEvent]()
	called := false
	observer := Observer[sampleEvent](func(e sampleEvent) { called = true })
	s.Attach(observer)
	s.Detach(observer)

	s.Notify(sampleEvent{1})
	assert.False(t, called)
}

func TestSignal_DetachFuncIsIdempotent(t *testing.T) {
	s := NewSignal[sampleEvent]()
	var got []int
	detach := s.Attach(func(e sampleEvent) { got = append(got, e.value) }, "obs")
	s.Attach(func(e sampleEvent) { got = append(got, -e.value) }, "other")

	detach()
	detach()
	s.Notify(sampleEvent{2})
	assert.Equal(t, []int{-2}, got)
}

func TestSignal_ObserverMayDetachDuringNotify(t *testing.T) {
	s := NewSignal[sampleEvent]()
	count := 0
	var detach Detach
	detach = s.Attach(func(e sampleEvent) {
		count++
		detach()
	}, "once")

	s.Notify(sampleEvent{1})
	s.Notify(sampleEvent{2})
	assert.Equal(t, 1, count)
}

func TestSignal_NotifyWithoutObservers(t *testing.T) {
	s := NewSignal[sampleEvent]()
	assert.NotPanics(t, func() { s.Notify(sampleEvent{1}) })
}
