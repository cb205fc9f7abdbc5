package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pilite-service/internal/config"
)

func TestCreateProtocol(t *testing.T) {
	t.Parallel()

	serialProto, err := CreateProtocol(&config.DeviceConfig{
		ConnectionType: "serial",
		Serial:         config.SerialPortConfig{Port: "/dev/ttyAMA0"},
	}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ConnectionTypeSerial, serialProto.GetProtocolType())
	assert.False(t, serialProto.IsOpen())

	tcpProto, err := CreateProtocol(&config.DeviceConfig{
		ConnectionType: "tcp",
		TCP:            config.TCPPortConfig{Host: "pi.local", Port: 2001},
	}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ConnectionTypeTCP, tcpProto.GetProtocolType())
}

func TestCreateProtocol_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.DeviceConfig
	}{
		{name: "unknown type", cfg: config.DeviceConfig{ConnectionType: "usb"}},
		{name: "serial without port", cfg: config.DeviceConfig{ConnectionType: "serial"}},
		{name: "tcp without host", cfg: config.DeviceConfig{ConnectionType: "tcp", TCP: config.TCPPortConfig{Port: 1}}},
		{name: "tcp bad port", cfg: config.DeviceConfig{ConnectionType: "tcp", TCP: config.TCPPortConfig{Host: "h", Port: 70000}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := CreateProtocol(&tt.cfg, nil, zap.NewNop())
			require.Error(t, err)
		})
	}
}
