package config

import (
	"fmt"
	"time"
)

// FormatDuration renders d in the Go-style wire format the sidecar expects:
// <H>h<M>m<S>s<ms>ms<μs>μs, e.g. "0h0m1s0ms0μs". time.Duration.String()
// already produces the hour/minute/second component ("1h0m0s") but omits
// the millisecond/microsecond components the sidecar's duration parser
// additionally accepts; this formatter always emits them explicitly so the
// output is bit-exact for the wire contract in spec.md §6/§8 scenario 2.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := d / time.Hour
	d -= hours * time.Hour

	minutes := d / time.Minute
	d -= minutes * time.Minute

	seconds := d / time.Second
	d -= seconds * time.Second

	millis := d / time.Millisecond
	d -= millis * time.Millisecond

	micros := d / time.Microsecond

	return fmt.Sprintf("%dh%dm%ds%dms%dμs", hours, minutes, seconds, millis, micros)
}
