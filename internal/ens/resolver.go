// Package ens resolves human-readable .eth names to on-chain addresses via
// the mainnet ENS registry. A raw address passes through untouched at the
// call sites; this package only ever sees names.
package ens

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"
)

// Resolver maps a name to a checksummed address. An empty result with a nil
// error means the name has no registered address; callers fall back to any
// raw address they hold.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Cache stores resolved names with a TTL. Lookups that miss or fail must not
// break resolution.
type Cache interface {
	Get(ctx context.Context, name string) (string, bool)
	Set(ctx context.Context, name, address string)
}

// mainnet ENS registry.
var registryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var (
	// resolver(bytes32)
	selResolver = [4]byte{0x01, 0x78, 0xb8, 0xbf}
	// addr(bytes32)
	selAddr = [4]byte{0x3b, 0x3b, 0x57, 0xde}
)

type contractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainResolver resolves names against the ENS registry over an RPC client.
type ChainResolver struct {
	caller contractCaller
	cache  Cache
}

// Dial connects to the given Ethereum RPC endpoint.
func Dial(ctx context.Context, rpcURL string, cache Cache) (*ChainResolver, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ens: dial %s: %w", rpcURL, err)
	}
	return &ChainResolver{caller: client, cache: cache}, nil
}

// NewChainResolver wraps an existing contract caller. Used by tests.
func NewChainResolver(caller contractCaller, cache Cache) *ChainResolver {
	return &ChainResolver{caller: caller, cache: cache}
}

// Resolve looks the name up in the registry. Empty or whitespace input
// short-circuits to an empty result without any network call.
func (r *ChainResolver) Resolve(ctx context.Context, name string) (string, error) {
	name = Normalize(name)
	if name == "" {
		return "", nil
	}

	if r.cache != nil {
		if addr, ok := r.cache.Get(ctx, name); ok {
			log.WithField("name", name).Debug("ens cache hit")
			return addr, nil
		}
	}

	node := Namehash(name)

	resolverAddr, err := r.callAddress(ctx, registryAddress, selResolver, node)
	if err != nil {
		return "", fmt.Errorf("ens: registry lookup for %s: %w", name, err)
	}
	if resolverAddr == (common.Address{}) {
		// No resolver registered for this name.
		return "", nil
	}

	addr, err := r.callAddress(ctx, resolverAddr, selAddr, node)
	if err != nil {
		return "", fmt.Errorf("ens: resolver lookup for %s: %w", name, err)
	}
	if addr == (common.Address{}) {
		return "", nil
	}

	resolved := addr.Hex()
	if r.cache != nil {
		r.cache.Set(ctx, name, resolved)
	}
	return resolved, nil
}

func (r *ChainResolver) callAddress(ctx context.Context, to common.Address, selector [4]byte, node [32]byte) (common.Address, error) {
	data := make([]byte, 0, 36)
	data = append(data, selector[:]...)
	data = append(data, node[:]...)

	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) < 32 {
		return common.Address{}, fmt.Errorf("short response (%d bytes)", len(out))
	}
	return common.BytesToAddress(out[12:32]), nil
}

// Normalize lowercases and trims a name. This covers the ASCII subset of ENS
// canonicalization, which is all the bridge accepts.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Namehash implements the EIP-137 recursive hash over the name's labels.
func Namehash(name string) [32]byte {
	var node [32]byte
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = [32]byte(crypto.Keccak256(node[:], labelHash))
	}
	return node
}
