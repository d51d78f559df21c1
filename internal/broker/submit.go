package broker

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swaprouter/internal/chain"
)

// submitCall builds, signs, and broadcasts a contract call transaction.
// Gas is estimated with a 20% buffer when the node cooperates, with a flat
// fallback otherwise.
func submitCall(ctx context.Context, backend Backend, signer chain.Signer, chainID *big.Int, to common.Address, data []byte, fallbackGas uint64) (*types.Transaction, error) {
	from := signer.Address()

	nonce, err := backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}

	gasLimit := fallbackGas
	estimated, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err == nil {
		gasLimit = estimated * 120 / 100
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)

	signed, err := signer.SignTx(chainID, tx)
	if err != nil {
		return nil, err
	}

	if err := backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	return signed, nil
}
