package router

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"shadowTrader/internal/model"
)

// Deadline windows bound replay exposure per operation class.
const (
	swapDeadlineWindow = time.Hour
	mintDeadlineWindow = 24 * time.Hour
)

// ExecutePlan is an ordered set of encoded input blobs plus the command
// bitmap that drives them. Commands execute in bitmap order.
type ExecutePlan struct {
	Commands []byte
	Inputs   [][]byte
}

// SwapParams carries the typed arguments of one exact-in swap.
type SwapParams struct {
	Router       common.Address
	Recipient    common.Address
	TokenIn      common.Address
	TokenOut     common.Address
	TickSpacing  int32
	AmountIn     *big.Int
	AmountOutMin *big.Int
}

// MintParams carries the typed arguments of one mint-position call.
type MintParams struct {
	Token0         common.Address
	Token1         common.Address
	TickSpacing    int32
	Ticks          model.TickRange
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Recipient      common.Address
}

// EncodePath packs a single-hop swap path: 20-byte tokenIn, 3-byte
// big-endian tick spacing, 20-byte tokenOut.
func EncodePath(tokenIn common.Address, tickSpacing int32, tokenOut common.Address) []byte {
	path := make([]byte, 0, 43)
	path = append(path, tokenIn.Bytes()...)
	path = append(path, byte(tickSpacing>>16), byte(tickSpacing>>8), byte(tickSpacing))
	return append(path, tokenOut.Bytes()...)
}

// BuildSwapPlan encodes the input blobs for a swap in the given direction.
// Buy wraps native value into the router first, then swaps to the owner;
// sell swaps into the router first, then unwraps to the owner.
func BuildSwapPlan(direction model.Direction, p SwapParams) (ExecutePlan, error) {
	path := EncodePath(p.TokenIn, p.TickSpacing, p.TokenOut)

	switch direction {
	case model.Buy:
		return EncodeInputs(OpSwapExactInNative,
			[]interface{}{p.Router, p.AmountIn},
			[]interface{}{p.Recipient, p.AmountIn, p.AmountOutMin, path, false},
		)
	case model.Sell:
		return EncodeInputs(OpSwapExactInToken,
			[]interface{}{p.Router, p.AmountIn, p.AmountOutMin, path, true},
			[]interface{}{p.Recipient, p.AmountOutMin},
		)
	default:
		return ExecutePlan{}, model.Errf(model.KindUnknownOperation, "unknown swap direction %q", direction)
	}
}

// EncodeExecute wraps a plan into full calldata for the router execute call,
// with a deadline of now plus the swap window.
func EncodeExecute(plan ExecutePlan, now time.Time) ([]byte, error) {
	routerAbi, err := RouterABI()
	if err != nil {
		return nil, err
	}
	deadline := big.NewInt(now.Add(swapDeadlineWindow).Unix())
	return routerAbi.Pack("execute", plan.Commands, plan.Inputs, deadline)
}

// EncodeMintMulticall builds multicall calldata holding exactly two steps in
// fixed order: mint position, then sweep residual native value back to the
// recipient. The order carries the refund semantics and must not change.
func EncodeMintMulticall(p MintParams, now time.Time) ([]byte, error) {
	deadline := big.NewInt(now.Add(mintDeadlineWindow).Unix())

	mint, err := EncodeCall(OpMintPosition,
		p.Token0,
		p.Token1,
		big.NewInt(int64(p.TickSpacing)),
		big.NewInt(int64(p.Ticks.TickLower)),
		big.NewInt(int64(p.Ticks.TickUpper)),
		p.Amount0Desired,
		p.Amount1Desired,
		p.Amount0Min,
		p.Amount1Min,
		p.Recipient,
		deadline,
	)
	if err != nil {
		return nil, err
	}

	sweep, err := EncodeCall(OpSweep)
	if err != nil {
		return nil, err
	}

	routerAbi, err := RouterABI()
	if err != nil {
		return nil, err
	}
	return routerAbi.Pack("multicall", [][]byte{mint, sweep})
}

// EncodeApprove builds ERC-20 approve calldata.
func EncodeApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	erc20Abi, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	return erc20Abi.Pack("approve", spender, amount)
}
