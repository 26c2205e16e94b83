package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T, conn Connector) *Room {
	t.Helper()
	hub := NewHub(conn)
	t.Cleanup(hub.Destroy)
	home, err := hub.AddHome("Little Home")
	require.NoError(t, err)
	room, err := home.AddRoom("Kitchen")
	require.NoError(t, err)
	return room
}

func TestHome_Rooms(t *testing.T) {
	t.Run("rooms iterate once each in insertion order", func(t *testing.T) {
		hub := NewHub(newFakeConnector())
		home, _ := hub.AddHome("Little Home")

		want := make([]string, 0, 20)
		for i := range 20 {
			name := fmt.Sprintf("room-%02d", 19-i)
			want = append(want, name)
			_, err := home.AddRoom(name)
			require.NoError(t, err)
		}

		var got []string
		for room := range home.Rooms().All() {
			got = append(got, room.Name())
		}
		assert.Equal(t, want, got)
		assert.Equal(t, 20, home.RoomCount())
	})

	t.Run("room lookups and deletes", func(t *testing.T) {
		hub := NewHub(newFakeConnector())
		home, _ := hub.AddHome("Little Home")
		_, err := home.AddRoom("Kitchen")
		require.NoError(t, err)

		_, err = home.AddRoom("Kitchen")
		assert.ErrorIs(t, err, ErrDuplicate)

		room, err := home.GetRoom("Kitchen")
		require.NoError(t, err)
		assert.Equal(t, "Kitchen", room.Name())
		assert.Equal(t, "Little Home", room.Home())

		require.NoError(t, home.DelRoom("Kitchen"))
		assert.ErrorIs(t, home.DelRoom("Kitchen"), ErrNotFound)
		_, err = home.GetRoom("Kitchen")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = room.AddThermometer("t", "", "127.0.0.1:1")
		assert.ErrorIs(t, err, ErrInvalidHandle)
	})
}

func TestRoom_CrossKindDuplicates(t *testing.T) {
	t.Run("socket with a thermometer's name is a duplicate", func(t *testing.T) {
		room := newTestRoom(t, newFakeConnector())

		_, err := room.AddThermometer("x", "", "127.0.0.1:10000")
		require.NoError(t, err)
		_, err = room.AddSocket("x", "", "127.0.0.1:10001")

		assert.ErrorIs(t, err, ErrDuplicate)
		assert.Equal(t, 1, room.DeviceCount())
		assert.Equal(t, 1, room.ThermometerCount())
		assert.Zero(t, room.SocketCount())
	})

	t.Run("thermometer with a socket's name is a duplicate", func(t *testing.T) {
		room := newTestRoom(t, newFakeConnector())

		_, err := room.AddSocket("x", "", "127.0.0.1:10001")
		require.NoError(t, err)
		_, err = room.AddThermometer("x", "", "127.0.0.1:10000")

		assert.ErrorIs(t, err, ErrDuplicate)
		assert.Equal(t, 1, room.DeviceCount())
	})
}

func TestRoom_FailedAddLeavesRoomUntouched(t *testing.T) {
	tests := []struct {
		name   string
		device string
		desc   string
		server string
		want   error
	}{
		{name: "empty name", device: "", server: "127.0.0.1:1", want: ErrInvalidName},
		{name: "control character", device: "a\tb", server: "127.0.0.1:1", want: ErrInvalidName},
		{name: "missing port", device: "t", server: "127.0.0.1", want: ErrInvalidServer},
		{name: "port out of range", device: "t", server: "127.0.0.1:70000", want: ErrInvalidServer},
		{name: "missing host", device: "t", server: ":10000", want: ErrInvalidServer},
		{name: "long description", device: "t", desc: string(make([]byte, MaxDescriptionLength+1)), server: "127.0.0.1:1", want: ErrInvalidDescription},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConnector()
			room := newTestRoom(t, conn)

			_, err := room.AddThermometer(tt.device, tt.desc, tt.server)
			assert.ErrorIs(t, err, tt.want)
			_, err = room.AddSocket(tt.device, tt.desc, tt.server)
			assert.ErrorIs(t, err, tt.want)
			if tt.want == ErrInvalidDescription {
				assert.NotErrorIs(t, err, ErrInvalidName)
			}

			assert.Zero(t, room.DeviceCount())
			assert.Zero(t, conn.created)
		})
	}

	t.Run("connector failure", func(t *testing.T) {
		conn := newFakeConnector()
		conn.fail = errors.New("bad target")
		room := newTestRoom(t, conn)

		_, err := room.AddSocket("kettle", "", "127.0.0.1:10001")
		assert.ErrorIs(t, err, ErrConnection)
		assert.Zero(t, room.DeviceCount())
	})
}

func TestRoom_DelDevice(t *testing.T) {
	for _, kind := range []Kind{KindThermometer, KindSocket} {
		t.Run(kind.String(), func(t *testing.T) {
			conn := newFakeConnector()
			room := newTestRoom(t, conn)

			var err error
			if kind == KindThermometer {
				_, err = room.AddThermometer("x", "", "127.0.0.1:10000")
			} else {
				_, err = room.AddSocket("x", "", "127.0.0.1:10000")
			}
			require.NoError(t, err)

			require.NoError(t, room.DelDevice("x"))

			_, err = room.GetDevice("x")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, room.DelDevice("x"), ErrNotFound)
			assert.Equal(t, 1, conn.closed)
		})
	}
}

func TestRoom_GetDevice(t *testing.T) {
	room := newTestRoom(t, newFakeConnector())
	_, err := room.AddThermometer("thermo1", "true thermo", "127.0.0.1:10000")
	require.NoError(t, err)
	_, err = room.AddSocket("kettle", "by the sink", "127.0.0.1:10001")
	require.NoError(t, err)

	dev, err := room.GetDevice("thermo1")
	require.NoError(t, err)
	assert.Equal(t, KindThermometer, dev.Kind())
	assert.Equal(t, "true thermo", dev.Description())
	assert.Equal(t, "127.0.0.1:10000", dev.Server())
	assert.IsType(t, &Thermometer{}, dev)

	dev, err = room.GetDevice("kettle")
	require.NoError(t, err)
	assert.Equal(t, KindSocket, dev.Kind())
	assert.IsType(t, &Socket{}, dev)
}

func TestRoom_Devices(t *testing.T) {
	room := newTestRoom(t, newFakeConnector())
	_, _ = room.AddSocket("s1", "", "127.0.0.1:2")
	_, _ = room.AddThermometer("t1", "", "127.0.0.1:1")
	_, _ = room.AddSocket("s2", "", "127.0.0.1:2")
	_, _ = room.AddThermometer("t2", "", "127.0.0.1:1")

	var names []string
	for dev := range room.Devices().All() {
		names = append(names, dev.Name())
	}
	assert.Equal(t, []string{"t1", "t2", "s1", "s2"}, names)

	sockets := room.Sockets().Collect()
	require.Len(t, sockets, 2)
	assert.Equal(t, "s1", sockets[0].Name())
}
