// Package proof defines the inclusion proof issuer contract. Proof
// generation itself belongs to an external collaborator; the core only
// requests, stores, and serves the opaque result.
package proof

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/norchain/bridge-middleware/pkg/chain"
)

// Issuer produces an inclusion proof for a source-chain transaction that has
// reached finality. The returned string is opaque to the bridge.
type Issuer interface {
	Issue(ctx context.Context, srcChain chain.Chain, srcTxHash string, blockNumber uint64) (string, error)
}

// StubIssuer is a deterministic placeholder used until a real prover is
// wired in. It derives an opaque token from the transaction coordinates so
// repeated issuance is stable.
type StubIssuer struct{}

// NewStubIssuer creates the placeholder issuer.
func NewStubIssuer() *StubIssuer {
	return &StubIssuer{}
}

func (s *StubIssuer) Issue(_ context.Context, srcChain chain.Chain, srcTxHash string, blockNumber uint64) (string, error) {
	digest := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%d", srcChain, srcTxHash, blockNumber))
	return "proof_" + hex.EncodeToString(digest[:]), nil
}
