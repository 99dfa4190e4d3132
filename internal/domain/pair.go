// Package domain defines core data structures used throughout the exchange engine.
package domain

import "fmt"

// Pair trading pair of two asset symbols.
type Pair struct {
	// From base asset symbol.
	From string
	// To quote asset symbol.
	To string
}

// String returns the string representation.
func (p *Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the concatenated symbol representation.
func (p *Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.From, p.To)
}

// Reversed returns the pair with base and quote swapped.
func (p *Pair) Reversed() Pair {
	return Pair{From: p.To, To: p.From}
}
