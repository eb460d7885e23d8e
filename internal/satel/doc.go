// Package satel implements the client side of the Satel Integra
// integration protocol.
//
// This package talks to an Integra alarm panel through its ETHM-1
// Ethernet module or INT-RS serial module and keeps a live snapshot of
// panel state while executing control commands.
//
// # Architecture
//
// The engine sits between callers and the panel's half-duplex bus:
//
//	┌─────────────────┐            ┌─────────────────┐
//	│     Callers     │  Submit /  │  Protocol       │  TCP / serial
//	│ (bridge, API)   │◄──────────►│  Engine         │◄────────────► Integra panel
//	└─────────────────┘  WaitFor   │  (this pkg)     │
//	                               └─────────────────┘
//
// # Key Responsibilities
//
//   - Frame codec: byte-stuffed framing with the panel's rotate/invert
//     checksum, resilient to mid-stream corruption
//   - Single-in-flight dispatch: commands queue FIFO and exactly one is
//     ever awaiting a response on the bus
//   - Response classification: direct responses, spontaneous status
//     pushes, and unexpected frames are told apart by frame code
//   - Status snapshot: the latest known value per category, replaced
//     atomically as fragments arrive
//   - WaitFor: block until the panel confirms a state, spanning both a
//     command's direct response and a later spontaneous push
//
// # Wire Format
//
// Every frame is 0xFE 0xFE | code | data | checksum | 0xFE 0x0D, with
// any body byte equal to 0xFE escaped as 0xFE 0xF0. The panel answers
// control commands with a result frame and pushes monitored status
// bitmaps unsolicited.
//
// Example:
//
//	transport, err := satel.DialTCP(ctx, satel.TCPConfig{Address: "192.168.1.15"})
//	if err != nil {
//	    return err
//	}
//	client, err := satel.NewClient(satel.Options{Transport: transport})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	cmd, err := satel.Arm(0, "1234", []int{1})
//	if err != nil {
//	    return err
//	}
//	st, err := client.WaitFor(ctx, satel.PartitionsArmed(1), &cmd, 30*time.Second)
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple
// goroutines.
//
// # References
//
//   - Satel Integra integration protocol, www.satel.pl
package satel
