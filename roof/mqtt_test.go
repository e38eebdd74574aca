package roof

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobIDFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"roofmetric/requests/job-123", "job-123"},
		{"roofmetric/requests", ""},
		{"roofmetric/requests/#", ""},
		{"job-9", "job-9"},
	}
	for _, tt := range tests {
		if got := jobIDFromTopic(tt.topic); got != tt.want {
			t.Errorf("jobIDFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

func TestHandleRequestDecodesInput(t *testing.T) {
	var gotJobID string
	var gotInput *MeasurementInput
	handler := func(jobID string, raw []byte, input *MeasurementInput, err error) {
		require.NoError(t, err)
		gotJobID = jobID
		gotInput = input
	}

	mock := NewMockClient()
	mock.SetConnected(true)
	c := newMQTTClientWithMock(mock, MQTTSettings{RequestTopic: "roofmetric/requests/#"}, handler)
	mock.Subscribe("roofmetric/requests/#", 1, c.handleRequest)

	in := MeasurementInput{ImageFrame: testFrame}
	payload, err := json.Marshal(in)
	require.NoError(t, err)

	mock.SimulateMessage("roofmetric/requests/job-55", payload)

	assert.Equal(t, "job-55", gotJobID)
	require.NotNil(t, gotInput)
	assert.Equal(t, "job-55", gotInput.JobID, "topic job ID fills an empty payload job ID")
	assert.Equal(t, testFrame, gotInput.ImageFrame)
}

func TestHandleRequestPayloadJobIDWins(t *testing.T) {
	var gotInput *MeasurementInput
	handler := func(jobID string, raw []byte, input *MeasurementInput, err error) {
		gotInput = input
	}

	mock := NewMockClient()
	mock.SetConnected(true)
	c := newMQTTClientWithMock(mock, MQTTSettings{RequestTopic: "roofmetric/requests/#"}, handler)
	mock.Subscribe("roofmetric/requests/#", 1, c.handleRequest)

	payload, err := json.Marshal(MeasurementInput{JobID: "payload-id", ImageFrame: testFrame})
	require.NoError(t, err)
	mock.SimulateMessage("roofmetric/requests/topic-id", payload)

	require.NotNil(t, gotInput)
	assert.Equal(t, "payload-id", gotInput.JobID)
}

func TestHandleRequestMalformedPayload(t *testing.T) {
	var gotErr error
	var gotRaw []byte
	var gotInput *MeasurementInput
	called := false
	handler := func(jobID string, raw []byte, input *MeasurementInput, err error) {
		called = true
		gotErr = err
		gotRaw = raw
		gotInput = input
	}

	mock := NewMockClient()
	mock.SetConnected(true)
	c := newMQTTClientWithMock(mock, MQTTSettings{RequestTopic: "roofmetric/requests/#"}, handler)
	mock.Subscribe("roofmetric/requests/#", 1, c.handleRequest)

	mock.SimulateMessage("roofmetric/requests/job-1", []byte("{broken"))

	require.True(t, called, "handler must be invoked for undecodable payloads")
	assert.Error(t, gotErr)
	assert.Equal(t, []byte("{broken"), gotRaw)
	assert.Nil(t, gotInput)
}

func TestInitMQTTDisabledWithoutBroker(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	c, err := InitMQTT(MQTTSettings{}, nil)
	require.NoError(t, err)
	assert.Nil(t, c, "no broker means MQTT is disabled, not an error")
}

func TestInitMQTTRequiresRequestTopic(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	_, err := InitMQTT(MQTTSettings{Broker: "tcp://broker:1883"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request topic")
}

func TestMQTTConnectionState(t *testing.T) {
	c := newMQTTClientWithMock(NewMockClient(), MQTTSettings{}, nil)
	assert.False(t, c.IsConnected())
	c.setConnected(true)
	assert.True(t, c.IsConnected())
	c.setConnected(false)
	assert.False(t, c.IsConnected())
}

func TestMockTopicMatching(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"roofmetric/requests/#", "roofmetric/requests/job-1", true},
		{"roofmetric/requests/#", "roofmetric/other/job-1", false},
		{"roofmetric/+/job-1", "roofmetric/requests/job-1", true},
		{"exact/topic", "exact/topic", true},
		{"exact/topic", "exact/other", false},
	}
	for _, tt := range tests {
		if got := topicMatches(tt.filter, tt.topic); got != tt.want {
			t.Errorf("topicMatches(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}

func TestMockTokenError(t *testing.T) {
	tok := NewMockToken(errors.New("boom"))
	assert.True(t, tok.Wait())
	assert.Error(t, tok.Error())
}
