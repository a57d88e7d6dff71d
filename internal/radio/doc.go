// Package radio provides the datagram transport between the bridge and the
// watering controller.
//
// The bridge core only depends on the Transport interface. SerialTransport
// implements it for a radio modem on a serial port: datagrams carry a
// to/from/id/flags header, are framed with DLE STX ... DLE ETX and protected
// by a CRC16. Every addressed datagram is acknowledged by the receiver;
// unacknowledged sends are repeated (5 retries, 200 ms apart by default).
//
// Usage:
//
//	t, err := radio.DialSerial(ctx, radio.Config{Port: "/dev/ttyUSB0", Baud: 9600, Address: 0x01})
//	if err != nil {
//	    return err
//	}
//	defer t.Close()
//	t.OnReceive(func(from byte, payload []byte) { ... })
//	err = t.Send(ctx, 0xDC, []byte{0xF0})
package radio
