package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swaprouter/internal/aggregator"
	"swaprouter/internal/broker"
	"swaprouter/internal/chain"
)

const routeStepFallbackGas = 500000

// routeExecutor drives the executable steps of an aggregator route: one
// signed transaction per step, each confirmed before the next begins.
type routeExecutor struct {
	backends      map[uint64]broker.Backend
	signer        chain.Signer
	confirmations uint64
	wait          broker.WaitOptions
	logger        *zap.Logger
}

type routeOutcome struct {
	steps        []Step
	approvalHash string
	primaryHash  string
}

func (e *routeExecutor) run(ctx context.Context, route *aggregator.Route, cb Callbacks) (*routeOutcome, error) {
	if len(route.Steps) == 0 {
		return nil, fmt.Errorf("%w: route %s has no steps", ErrNoRoute, route.ID)
	}

	outcome := &routeOutcome{}
	for i, step := range route.Steps {
		backend, ok := e.backends[step.ChainID]
		if !ok {
			return nil, fmt.Errorf("%w: no rpc client for %s", ErrUnsupported, chain.NetworkName(step.ChainID))
		}

		hash, err := e.submitStep(ctx, backend, step)
		if err != nil {
			if step.Type == aggregator.StepApprove {
				err = errors.Join(ErrApprovalFailed, err)
			}
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Type, err)
		}

		if step.Type == aggregator.StepApprove {
			cb.approvalSubmitted(hash)
		} else {
			cb.swapSubmitted(hash)
		}

		if _, err := broker.WaitMined(ctx, backend, common.HexToHash(hash), e.confirmations, e.wait); err != nil {
			if step.Type == aggregator.StepApprove {
				err = errors.Join(ErrApprovalFailed, err)
			}
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Type, err)
		}

		if step.Type == aggregator.StepApprove {
			cb.approvalConfirmed()
			outcome.approvalHash = hash
		} else {
			outcome.primaryHash = hash
		}

		description := step.Description
		if description == "" {
			description = string(step.Type)
		}
		outcome.steps = append(outcome.steps, Step{Description: description, TxHash: hash})

		e.logger.Info("route step confirmed",
			zap.String("route", route.ID),
			zap.Int("step", i+1),
			zap.String("type", string(step.Type)),
			zap.String("tx", hash),
		)
	}

	if outcome.primaryHash == "" {
		return nil, fmt.Errorf("route %s contained no executable swap step", route.ID)
	}
	return outcome, nil
}

func (e *routeExecutor) submitStep(ctx context.Context, backend broker.Backend, step aggregator.Step) (string, error) {
	if !common.IsHexAddress(step.Tx.To) {
		return "", fmt.Errorf("invalid step target address %q", step.Tx.To)
	}
	to := common.HexToAddress(step.Tx.To)
	data := common.FromHex(step.Tx.Data)

	value := big.NewInt(0)
	if step.Tx.Value != "" {
		parsed, ok := new(big.Int).SetString(step.Tx.Value, 10)
		if !ok {
			return "", fmt.Errorf("invalid step value %q", step.Tx.Value)
		}
		value = parsed
	}

	from := e.signer.Address()
	nonce, err := backend.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("get gas price: %w", err)
	}

	gasLimit := step.Tx.GasLimit
	if gasLimit == 0 {
		gasLimit = routeStepFallbackGas
		estimated, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
		if err == nil {
			gasLimit = estimated * 120 / 100
		}
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signed, err := e.signer.SignTx(new(big.Int).SetUint64(step.ChainID), tx)
	if err != nil {
		return "", err
	}

	if err := backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return signed.Hash().Hex(), nil
}
