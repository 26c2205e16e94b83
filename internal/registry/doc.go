// Package registry provides the home registry for the smart home hub.
//
// The registry is the ownership tree of every entity the hub knows about:
// a Hub owns named Homes, a Home owns named Rooms, and a Room owns named
// smart devices (Thermometers and Sockets). Each device is backed by a
// remote endpoint reached through a Connector.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────────┐
//	│                               Hub                                  │
//	│  homes: ordered, unique names                                      │
//	│                                                                    │
//	│   ┌──────────────────────────────┐                                 │
//	│   │            Home              │   ...                           │
//	│   │  rooms: ordered, unique      │                                 │
//	│   │                              │                                 │
//	│   │   ┌──────────────────────┐   │                                 │
//	│   │   │         Room         │   │                                 │
//	│   │   │ thermometers  sockets│   │                                 │
//	│   │   │ (one shared name set)│   │                                 │
//	│   │   └──────────┬───────────┘   │                                 │
//	│   └──────────────│───────────────┘                                 │
//	└──────────────────│─────────────────────────────────────────────────┘
//	                   ▼
//	        ┌──────────────────────┐
//	        │  Connector (network) │  UDP thermometers, gRPC sockets
//	        └──────────────────────┘
//
// # Key Types
//
//   - Hub: root of the tree, created with NewHub and released with Destroy
//   - Home, Room: containers created only through their parent's Add method
//   - Device: sealed interface over *Thermometer and *Socket; switch on Kind
//   - Cursor: one-shot iterator over a snapshot of a container's names
//   - Shared: mutex-guarded Hub for concurrent front ends
//
// # Usage
//
//	hub := registry.NewHub(endpoint.NewConnector(endpoint.Config{}))
//	defer hub.Destroy()
//
//	home, err := hub.AddHome("Little Home")
//	if err != nil {
//	    return err
//	}
//	kitchen, _ := home.AddRoom("Kitchen")
//	thermo, _ := kitchen.AddThermometer("thermo1", "true thermo", "127.0.0.1:10000")
//
//	celsius, err := thermo.Temperature(ctx)
//	if errors.Is(err, registry.ErrConnection) {
//	    // endpoint unreachable or sent garbage
//	}
//
//	for room := range home.Rooms().All() {
//	    fmt.Println(room.Name())
//	}
//
// # Handles
//
// Homes, Rooms and Devices are returned as pointers that stay owned by
// their parent. Deleting an entity, or destroying the Hub, detaches every
// handle beneath it: later calls through a detached handle return
// ErrInvalidHandle and never reach the network.
//
// # Cursors
//
// A Cursor copies the container's name order when it is created and looks
// each name up in the live container on Next. Entries deleted after the
// cursor was created are skipped, entries added afterwards are not visited.
//
// # Thread Safety
//
// Hub and everything beneath it is not safe for concurrent use. Callers
// that share a hub between goroutines wrap it in Shared (or their own lock).
package registry
