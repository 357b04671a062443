package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/puma-wage-map/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	aw := domain.AreaWage{GEOID: "0600123", AvgHourlyWage: 31.25}

	msg, err := serializeToMessage(aw, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("0600123"), msg.Key)
	assert.JSONEq(t, `{"geoid":"0600123","avg_hourly_wage":31.25,"computed_at":"2024-10-01T12:00:00Z"}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "source", msg.Headers[0].Key)
	assert.Equal(t, []byte(SourceHeader), msg.Headers[0].Value)
	assert.Equal(t, "computed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("CDT", -5*60*60)
	local := time.Date(2024, 10, 1, 7, 0, 0, 0, loc)

	msg, err := serializeToMessage(domain.AreaWage{GEOID: "4800400", AvgHourlyWage: 20}, local)
	require.NoError(t, err)

	var got WageMessage
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.True(t, got.ComputedAt.Equal(local))
	assert.Equal(t, "2024-10-01T12:00:00Z", string(msg.Headers[1].Value))
}

func TestSerializeToMessage_NaNFails(t *testing.T) {
	_, err := serializeToMessage(domain.AreaWage{GEOID: "0100100", AvgHourlyWage: math.NaN()}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0100100")
}

func TestWriter_LoadWages_EmptyIsNoop(t *testing.T) {
	w := NewWriter([]string{"localhost:1"}, "unused", slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	assert.NoError(t, w.LoadWages(context.Background(), domain.AggregateResult{}))
}
