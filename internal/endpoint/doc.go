// Package endpoint implements the network side of smart devices.
//
// The registry package decides which devices exist; this package decides
// how the hub talks to them. It provides:
//
//   - ThermometerClient: reads a temperature over UDP
//   - SocketClient: switches a power socket and reads its draw over gRPC
//   - Connector: creates both, satisfying registry.Connector
//   - ThermometerServer, SocketServer: device simulators for tests and
//     for the devicesim command
//
// # Wire Formats
//
// Thermometer (UDP): the client sends the single byte 0x01 and the device
// answers with its reading as an 8-byte big-endian IEEE-754 float64.
//
//	hub ──[0x01]──────────────────────▶ thermometer
//	hub ◀──[8 bytes, float64 BE]─────── thermometer
//
// Socket (gRPC): service smart_home_socket.Socket with unary methods On,
// Off and CurrentPower. Messages are protobuf: On and Off exchange empty
// messages and CurrentPower answers with a double in field 1, so the
// well-known emptypb.Empty and wrapperspb.DoubleValue types stand in for
// generated code.
//
// # Connections
//
// Creating a client performs no network I/O. Thermometer reads dial a
// fresh UDP socket per request; socket clients hold a lazily connecting
// grpc.ClientConn which is released by Close.
//
// # Timeouts
//
// Every request honours the caller's context. When the context carries no
// deadline, Config.ReadTimeout applies.
package endpoint
