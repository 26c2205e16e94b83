package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/influxdb"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/mqtt"
	"github.com/nerrad567/smarthome-hub/internal/registry"
)

func sampleReadings() []Reading {
	return []Reading{
		{Home: "Home", Room: "Kitchen", Device: "Thermo", Kind: registry.KindThermometer, Value: 21.5, Unit: UnitCelsius, Timestamp: fixedNow},
		{Home: "Home", Room: "Kitchen", Device: "Kettle", Kind: registry.KindSocket, Value: 1200, Unit: UnitWatts, Timestamp: fixedNow},
		{Home: "Home", Room: "a/b", Device: "Broken", Kind: registry.KindThermometer, Unit: UnitCelsius, Err: errUnreachable, Timestamp: fixedNow},
	}
}

func TestMQTTSink_PublishesRetainedState(t *testing.T) {
	pub := &fakePublisher{connected: true}

	err := NewMQTTSink(pub).Send(context.Background(), sampleReadings())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"smarthub/state/Home/Kitchen/Thermo",
		"smarthub/state/Home/Kitchen/Kettle",
		"smarthub/state/Home/a%2Fb/Broken",
	}, pub.topics)
	assert.Equal(t, []bool{true, true, true}, pub.retained)
	assert.Equal(t, sampleReadings()[0], pub.payloads[0])
}

func TestMQTTSink_Disconnected(t *testing.T) {
	pub := &fakePublisher{connected: false}

	err := NewMQTTSink(pub).Send(context.Background(), sampleReadings())
	assert.ErrorIs(t, err, mqtt.ErrNotConnected)
	assert.Empty(t, pub.topics)
}

func TestMQTTSink_JoinsPublishErrors(t *testing.T) {
	pub := &fakePublisher{connected: true, fail: errors.New("broker gone")}

	err := NewMQTTSink(pub).Send(context.Background(), sampleReadings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smarthub/state/Home/Kitchen/Kettle")
}

func TestInfluxSink_WritesByKindAndSkipsFailures(t *testing.T) {
	w := &fakeWriter{}

	err := NewInfluxSink(w).Send(context.Background(), sampleReadings())
	require.NoError(t, err)
	require.Len(t, w.calls, 2)

	assert.Equal(t, metricCall{
		measurement: influxdb.MeasurementDeviceMetrics,
		tags:        influxdb.DeviceTags{Home: "Home", Room: "Kitchen", Device: "Thermo", Kind: "thermometer"},
		metric:      MetricTemperature,
		value:       21.5,
		timestamp:   fixedNow,
	}, w.calls[0])
	assert.Equal(t, influxdb.MeasurementEnergy, w.calls[1].measurement)
	assert.Equal(t, 1200.0, w.calls[1].value)
	assert.Equal(t, "socket", w.calls[1].tags.Kind)
	assert.Equal(t, 1, w.flushes, "one flush per sweep")
}
