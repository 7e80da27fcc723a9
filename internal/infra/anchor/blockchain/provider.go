package blockchain

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/sha3"

	"arbiter/internal/domain"
	"arbiter/internal/infra/anchor"
)

// Block is one anchored payload on the in-process chain.
type Block struct {
	Height      uint64
	Parent      [32]byte
	PayloadHash string
	Hash        [32]byte
}

// Provider anchors payloads on an in-process hash chain. Each block commits to its parent, its
// height and the payload hash; the receipt's transaction id is the block hash.
type Provider struct {
	name string

	mu     sync.Mutex
	blocks []Block
}

func NewProvider() *Provider {
	return &Provider{name: "blockchain"}
}

func (p *Provider) ProviderName() string {
	if p.name == "" {
		return "blockchain"
	}
	return p.name
}

func (p *Provider) Anchor(ctx context.Context, payload anchor.Payload) domain.AnchorReceipt {
	receipt := domain.AnchorReceipt{Provider: p.ProviderName()}
	if err := ctx.Err(); err != nil {
		receipt.Status = domain.AnchorStatusFailed
		receipt.Error = err.Error()
		return receipt
	}
	if payload.HashHex == "" {
		receipt.Status = domain.AnchorStatusFailed
		receipt.Error = "payload hash is empty"
		return receipt
	}

	p.mu.Lock()
	var parent [32]byte
	if n := len(p.blocks); n > 0 {
		parent = p.blocks[n-1].Hash
	}
	block := Block{Height: uint64(len(p.blocks)), Parent: parent, PayloadHash: payload.HashHex}
	block.Hash = blockHash(block)
	p.blocks = append(p.blocks, block)
	p.mu.Unlock()

	receipt.Status = domain.AnchorStatusAnchored
	receipt.TxID = "0x" + hex.EncodeToString(block.Hash[:])
	return receipt
}

// Blocks returns a copy of the chain, genesis first.
func (p *Provider) Blocks() []Block {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Block(nil), p.blocks...)
}

// VerifyChain reports the height of the first block whose links or hash do not hold.
func VerifyChain(blocks []Block) (int, bool) {
	var parent [32]byte
	for i, b := range blocks {
		if b.Height != uint64(i) || b.Parent != parent || b.Hash != blockHash(b) {
			return i, false
		}
		parent = b.Hash
	}
	return len(blocks), true
}

func blockHash(b Block) [32]byte {
	var height [8]byte
	binary.BigEndian.PutUint64(height[:], b.Height)
	h := sha3.NewLegacyKeccak256()
	h.Write(b.Parent[:])
	h.Write(height[:])
	h.Write([]byte(b.PayloadHash))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
