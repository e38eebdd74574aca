package roof

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishResult(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(true)
	p := NewPublisher(client, "roofmetric")

	r := storedResult("job-7", 2400)
	require.NoError(t, p.PublishResult(r))

	msgs := client.GetPublishedMessages()
	require.Len(t, msgs, 2)

	// Full result on the per-job topic, not retained.
	assert.Equal(t, "roofmetric/results/job-7", msgs[0].Topic)
	assert.Equal(t, byte(1), msgs[0].QoS)
	assert.False(t, msgs[0].Retain)

	var full MeasurementResult
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &full))
	assert.Equal(t, "job-7", full.JobID)
	assert.Equal(t, 2400.0, full.TotalAdjustedAreaSqft)

	// Combined summaries on the prefix topic, retained for late joiners.
	assert.Equal(t, "roofmetric/results", msgs[1].Topic)
	assert.True(t, msgs[1].Retain)

	var summaries []ResultSummary
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "job-7", summaries[0].JobID)
}

func TestPublishResultAccumulatesSummaries(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(true)
	p := NewPublisher(client, "roofmetric")

	require.NoError(t, p.PublishResult(storedResult("a", 1000)))
	require.NoError(t, p.PublishResult(storedResult("b", 2000)))

	msgs := client.GetPublishedMessages()
	require.Len(t, msgs, 4)

	var summaries []ResultSummary
	require.NoError(t, json.Unmarshal(msgs[3].Payload, &summaries))
	assert.Len(t, summaries, 2, "summary topic carries every published job")
}

func TestPublishResultNotConnected(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(false)
	p := NewPublisher(client, "roofmetric")

	err := p.PublishResult(storedResult("x", 1000))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	p = NewPublisher(nil, "roofmetric")
	assert.Error(t, p.PublishResult(storedResult("x", 1000)), "nil client publishing disabled")
}

func TestNewPublisherPrefixFallback(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")
	p := NewPublisher(nil, "")
	assert.Equal(t, "roofmetric", p.prefix)

	t.Setenv("MQTT_PUBLISH_PREFIX", "acme/roofs")
	p = NewPublisher(nil, "")
	assert.Equal(t, "acme/roofs", p.prefix)

	p = NewPublisher(nil, "explicit")
	assert.Equal(t, "explicit", p.prefix, "explicit prefix beats the environment")
}
