package chain

import (
	"fmt"
	"sort"
)

// Family groups chains whose assets can be swapped without a bridge.
type Family string

const (
	FamilyEthereum Family = "ethereum"
	FamilyBNB      Family = "bnb"
	FamilyPolygon  Family = "polygon"
)

// Network describes a supported chain.
type Network struct {
	ID      uint64
	Name    string
	Family  Family
	Testnet bool
}

// networks is the static support table. Routing never consults anything else,
// so adding a chain is a one-line change here.
var networks = map[uint64]Network{
	1:        {ID: 1, Name: "Ethereum", Family: FamilyEthereum},
	10:       {ID: 10, Name: "Optimism", Family: FamilyEthereum},
	8453:     {ID: 8453, Name: "Base", Family: FamilyEthereum},
	42161:    {ID: 42161, Name: "Arbitrum One", Family: FamilyEthereum},
	11155111: {ID: 11155111, Name: "Sepolia", Family: FamilyEthereum, Testnet: true},
	56:       {ID: 56, Name: "BNB Smart Chain", Family: FamilyBNB},
	97:       {ID: 97, Name: "BNB Testnet", Family: FamilyBNB, Testnet: true},
	137:      {ID: 137, Name: "Polygon", Family: FamilyPolygon},
	80002:    {ID: 80002, Name: "Polygon Amoy", Family: FamilyPolygon, Testnet: true},
}

// IsSupported reports whether the chain ID is in the support table.
func IsSupported(chainID uint64) bool {
	_, ok := networks[chainID]
	return ok
}

// IsTestnet reports whether the chain is a test network.
func IsTestnet(chainID uint64) bool {
	return networks[chainID].Testnet
}

// SameFamily reports whether two chains belong to the same L1/L2 cluster.
// Unsupported chains are never in any family.
func SameFamily(a, b uint64) bool {
	na, ok := networks[a]
	if !ok {
		return false
	}
	nb, ok := networks[b]
	if !ok {
		return false
	}
	return na.Family == nb.Family
}

// IsCrossChain reports whether a swap between the two chains needs a bridge.
// Both chains must be supported; a pair within one family is not cross-chain.
func IsCrossChain(fromID, toID uint64) bool {
	if !IsSupported(fromID) || !IsSupported(toID) {
		return false
	}
	if fromID == toID {
		return false
	}
	return !SameFamily(fromID, toID)
}

// Networks returns the support table ordered by chain ID.
func Networks() []Network {
	out := make([]Network, 0, len(networks))
	for _, n := range networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NetworkName returns a display name for the chain, or a numeric fallback.
func NetworkName(chainID uint64) string {
	if n, ok := networks[chainID]; ok {
		return n.Name
	}
	return fmt.Sprintf("chain %d", chainID)
}
