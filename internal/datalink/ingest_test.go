package datalink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/banshee-data/flightpath/internal/recorder"
)

const (
	sampleA = "2733.92 15.755530969 42.900372544 3657.4 178.9 0.2 -0.4 169.2 -1.0 0.7 -0.030 0.009 0.038 0.00781 -0.00391 0.07031"
	sampleB = "2733.93 15.755531608 42.900354289 3657.4 178.9 0.2 -0.4 169.2 -1.0 0.7 -0.032 0.010 0.039 0.00781 -0.00391 0.06641"
)

func TestIngest(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	lines := []string{"# datalogger v2", sampleA, "", "garbage", "  " + sampleB + "  "}
	var got []recorder.Entry
	stats, err := Ingest(context.Background(), Replay(context.Background(), lines), func(e recorder.Entry) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, IngestStats{Lines: 5, Entries: 2, Skipped: 2, Malformed: 1}, stats)
	assert.Equal(t, "5 lines, 2 samples, 2 skipped, 1 malformed", stats.String())
	require.Len(t, got, 2)
	assert.InDelta(t, 2733.92, got[0].Time, 1e-9)
	assert.InDelta(t, 2733.93, got[1].Time, 1e-9)
}

func TestIngest_HandlerError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	full := errors.New("store full")
	stats, err := Ingest(ctx, Replay(ctx, []string{sampleA, sampleB}), func(recorder.Entry) error {
		return full
	})
	assert.ErrorIs(t, err, full)
	assert.Contains(t, err.Error(), "handle line 1")
	assert.Equal(t, IngestStats{Lines: 1}, stats)
}

func TestIngest_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := Ingest(ctx, make(chan string), func(recorder.Entry) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats)
}

func TestReplay_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	ch := Replay(ctx, []string{"a", "b", "c"})
	assert.Equal(t, "a", <-ch)
	cancel()
	for range ch {
	}
}

func TestFollow_DeliversBacklogAfterEOF(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	const n = subscriberBuffer - 6
	port := NewTestableSerialPort()
	for i := 0; i < n; i++ {
		port.ReadBuffer.WriteString(sampleA + "\n")
	}
	m := NewSerialMux(port)

	lines, monitorErr := Follow(context.Background(), m)
	// let Monitor reach EOF with the whole backlog still buffered
	require.NoError(t, <-monitorErr)
	assert.Len(t, lines, n)

	var handled int
	stats, err := Ingest(context.Background(), lines, func(recorder.Entry) error {
		handled++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, n, handled)
	assert.Equal(t, IngestStats{Lines: n, Entries: n}, stats)
	assert.Nil(t, m.Stats().Subscribers)
}

func TestFollow_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	port := NewTestableSerialPort()
	port.BlockReads = true
	m := NewSerialMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	lines, monitorErr := Follow(ctx, m)
	cancel()
	assert.ErrorIs(t, <-monitorErr, context.Canceled)
	_, ok := <-lines
	assert.False(t, ok)
	require.NoError(t, m.Close())
}
