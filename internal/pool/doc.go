// Package pool groups backends into named upstream pools and applies a
// selection strategy over the healthy members. Pools are immutable after
// construction; reload replaces them wholesale.
package pool
