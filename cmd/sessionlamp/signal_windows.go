// Signal handling for Windows. POSIX signals like SIGTERM do not exist
// there, so only [os.Interrupt] is registered; the Go runtime maps
// CTRL_BREAK_EVENT and console-close events to os.Interrupt as well.

//go:build windows

package main

import (
	"os"
	"os/signal"
)

// ///////////////////////////////////////////////
// Signal Handling
// ///////////////////////////////////////////////

// signalChannel returns a buffered channel that receives os.Interrupt.
// The buffer of 1 keeps a signal from being lost if the receiver is briefly
// busy when it arrives.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch
}
