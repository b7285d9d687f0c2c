package logging

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestRingLogKeepsOrder(t *testing.T) {
	ring := NewRingLog(3)

	ring.Log(zapcore.InfoLevel, "a")
	ring.Log(zapcore.WarnLevel, "b")

	entries := ring.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestRingLogEvictsOldest(t *testing.T) {
	ring := NewRingLog(3)

	for i := 0; i < 5; i++ {
		ring.Log(zapcore.InfoLevel, fmt.Sprintf("line %d", i))
	}

	entries := ring.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "line 2", entries[0].Message)
	assert.Equal(t, "line 4", entries[2].Message)
	assert.Equal(t, 3, ring.Len())
}

func TestRingLogClear(t *testing.T) {
	ring := NewRingLog(2)
	ring.Log(zapcore.InfoLevel, "a")
	ring.Log(zapcore.InfoLevel, "b")
	ring.Log(zapcore.InfoLevel, "c")

	ring.Clear()

	assert.Empty(t, ring.Entries())
	ring.Log(zapcore.InfoLevel, "d")
	assert.Equal(t, "d", ring.Entries()[0].Message)
}

func TestRingLogSubscribe(t *testing.T) {
	ring := NewRingLog(2)

	var first, second []string
	stopFirst := ring.Subscribe(func(e Entry) { first = append(first, e.Message) })
	stopSecond := ring.Subscribe(func(e Entry) { second = append(second, e.Message) })
	assert.Equal(t, 2, ring.Subscribers())

	ring.Log(zapcore.ErrorLevel, "boom")
	stopFirst()
	stopFirst()
	ring.Log(zapcore.InfoLevel, "after")

	assert.Equal(t, []string{"boom"}, first)
	assert.Equal(t, []string{"boom", "after"}, second)
	assert.Equal(t, 1, ring.Subscribers())

	stopSecond()
	assert.Zero(t, ring.Subscribers())
}

func TestRingLogConcurrent(t *testing.T) {
	ring := NewRingLog(DefaultRingCapacity)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ring.Log(zapcore.InfoLevel, "x")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, DefaultRingCapacity, ring.Len())
}

func TestMultiSink(t *testing.T) {
	a := NewRingLog(4)
	b := NewRingLog(4)
	multi := NewMultiSink(a, nil, b)

	multi.Log(zapcore.InfoLevel, "hello")

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestRenderHTMLEscapesMessages(t *testing.T) {
	entries := []Entry{{
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   zapcore.ErrorLevel,
		Message: `<script>alert("x")</script>`,
	}}

	out := RenderHTML(entries)

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "debug-error")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "03:04:05")
}

func TestZapSinkNilLogger(t *testing.T) {
	sink := NewZapSink(nil)
	assert.NotPanics(t, func() { sink.Log(zapcore.InfoLevel, "ignored") })
}

func TestParseLevelWarn(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
