// Package resource bounds what data frames consume: resident page memory,
// concurrent write-behind tasks, and page I/O throughput.
//
// A nil *Controller imposes no limits, so frames can always call it.
package resource
