package block

import (
	"fmt"

	"github.com/roach88/kwsearch/internal/ir"
	"github.com/roach88/kwsearch/internal/network"
	"github.com/roach88/kwsearch/internal/tupleset"
)

// Block is one stratum choice for every distinct non-free tuple set of a
// network.
type Block struct {
	Network *network.Network
	Creator *Creator

	// Index holds one stratum rank per distinct non-free tuple set, in
	// network.DistinctNonFree order.
	Index []int

	// Signature is the keyword vector shared by every joined tuple of the
	// block.
	Signature tupleset.Signature

	State State

	key string
}

// Stratum returns the stratum chosen for node i, or nil for free nodes.
func (b *Block) Stratum(i int) *tupleset.Stratum {
	pos := b.Creator.position[i]
	if pos < 0 {
		return nil
	}
	return b.Creator.strata[pos][b.Index[pos]]
}

// ComputeSignature sums the chosen stratum signatures over the non-free
// nodes of the network.
func (b *Block) ComputeSignature() tupleset.Signature {
	sig := tupleset.NewSignature(b.Creator.query)
	for i := range b.Network.Nodes {
		if s := b.Stratum(i); s != nil {
			sig = sig.Add(s.Signature)
		}
	}
	return sig
}

// UScore bounds the score of every tuple produced by this block or by any
// block reachable from it through Adjacent.
func (b *Block) UScore() float64 {
	return b.Creator.uscore(b.Index)
}

// BScore bounds the score of every tuple produced by this block.
func (b *Block) BScore() float64 {
	return b.Creator.bscore(b)
}

// Key identifies the block across networks.
func (b *Block) Key() string {
	if b.key == "" {
		h, err := ir.BlockHash(b.Network.Key(), b.Index)
		if err != nil {
			panic(fmt.Errorf("block.Key: %w", err))
		}
		b.key = h
	}
	return b.key
}

func (b *Block) String() string {
	return fmt.Sprintf("%s%v", b.Network, b.Index)
}
