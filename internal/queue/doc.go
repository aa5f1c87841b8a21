// Package queue provides the unbounded FIFO used to hand inbound frames and
// callback work between goroutines without dropping or reordering items.
package queue
