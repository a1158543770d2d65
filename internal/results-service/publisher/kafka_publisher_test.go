package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
	"github.com/radieske/megasena-tracker/pkg/contracts/events"
)

type fakeWriter struct {
	batches [][]kafka.Message
	err     error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, msgs)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func window(ns ...int) []dto.ContestResult {
	out := make([]dto.ContestResult, 0, len(ns))
	for _, n := range ns {
		out = append(out, dto.ContestResult{ContestNumber: n, DrawnNumbers: []string{"01", "02", "03", "04", "05", "06"}})
	}
	return out
}

func keys(msgs []kafka.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, string(m.Key))
	}
	return out
}

func TestAnnounceNew_FirstWindowThenOnlyNewer(t *testing.T) {
	w := &fakeWriter{}
	p := NewContestPublisher(w, nil)

	p.AnnounceNew(context.Background(), window(12, 11, 10))
	p.AnnounceNew(context.Background(), window(12, 11, 10))
	p.AnnounceNew(context.Background(), window(13, 12, 11))

	require.Len(t, w.batches, 2)
	assert.Equal(t, []string{"10", "11", "12"}, keys(w.batches[0]))
	assert.Equal(t, []string{"13"}, keys(w.batches[1]))

	var ev events.ContestDrawn
	require.NoError(t, json.Unmarshal(w.batches[1][0].Value, &ev))
	assert.Equal(t, 13, ev.ContestNumber)
	assert.Equal(t, Source, ev.Source)
	assert.False(t, ev.ObservedAt.IsZero())
}

func TestAnnounceNew_FailureRetriesNextWindow(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewContestPublisher(w, nil)

	p.AnnounceNew(context.Background(), window(5, 4))
	assert.Empty(t, w.batches)

	w.err = nil
	p.AnnounceNew(context.Background(), window(5, 4))
	require.Len(t, w.batches, 1)
	assert.Equal(t, []string{"4", "5"}, keys(w.batches[0]))
}

func TestAnnounceNew_LateOlderContestIsAnnounced(t *testing.T) {
	w := &fakeWriter{}
	p := NewContestPublisher(w, nil)

	// 2865 falhou na primeira janela
	p.AnnounceNew(context.Background(), window(2870, 2869, 2868, 2867, 2866, 2864))
	p.AnnounceNew(context.Background(), window(2870, 2869, 2868, 2867, 2866, 2865, 2864))
	p.AnnounceNew(context.Background(), window(2870, 2869, 2868, 2867, 2866, 2865, 2864))

	require.Len(t, w.batches, 2)
	assert.Len(t, w.batches[0], 6)
	assert.Equal(t, []string{"2865"}, keys(w.batches[1]))
}

func TestAnnounceNew_ForgetsContestsOutsideWindow(t *testing.T) {
	p := NewContestPublisher(&fakeWriter{}, nil)

	p.AnnounceNew(context.Background(), window(12, 11, 10))
	p.AnnounceNew(context.Background(), window(14, 13, 12))

	assert.Len(t, p.announced, 3)
	assert.Contains(t, p.announced, 12)
	assert.NotContains(t, p.announced, 10)
}
