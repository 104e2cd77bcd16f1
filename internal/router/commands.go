package router

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"shadowTrader/internal/model"
)

// Operation is a logical router operation known to the command registry.
type Operation string

const (
	// OpMintPosition mints a concentrated-liquidity position via multicall.
	OpMintPosition Operation = "MintPosition"
	// OpSweep returns residual native value to the caller via multicall.
	OpSweep Operation = "Sweep"
	// OpSwapExactInNative swaps native currency for a token via execute.
	OpSwapExactInNative Operation = "SwapExactInNative"
	// OpSwapExactInToken swaps a token for native currency via execute.
	OpSwapExactInToken Operation = "SwapExactInToken"
)

// Router command bytes. Order within the bitmap is execution order and is
// part of the wire contract.
const (
	cmdWrapNative   = 0x0b
	cmdSwapExactIn  = 0x00
	cmdUnwrapNative = 0x0c
)

// Command describes the wire layout of one registered operation. Multicall
// operations carry a 4-byte selector and a single argument schema; execute
// operations carry a command bitmap and one argument schema per input blob.
type Command struct {
	Selector []byte
	Commands []byte
	Inputs   []abi.Arguments
}

type argSpec struct {
	name string
	typ  string
}

var (
	commandsOnce sync.Once
	commandsMap  map[Operation]Command
	commandsErr  error
)

func buildArguments(specs []argSpec) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(specs))
	for _, spec := range specs {
		t, err := abi.NewType(spec.typ, "", nil)
		if err != nil {
			return nil, fmt.Errorf("abi type %s: %w", spec.typ, err)
		}
		args = append(args, abi.Argument{Name: spec.name, Type: t})
	}
	return args, nil
}

func mustSelector(hexSelector string) []byte {
	b, err := hex.DecodeString(hexSelector)
	if err != nil || len(b) != 4 {
		panic(fmt.Sprintf("bad selector literal %q", hexSelector))
	}
	return b
}

func buildCommands() (map[Operation]Command, error) {
	mintArgs, err := buildArguments([]argSpec{
		{"token0", "address"},
		{"token1", "address"},
		{"tickSpacing", "int24"},
		{"tickLower", "int24"},
		{"tickUpper", "int24"},
		{"amount0Desired", "uint256"},
		{"amount1Desired", "uint256"},
		{"amount0Min", "uint256"},
		{"amount1Min", "uint256"},
		{"recipient", "address"},
		{"deadline", "uint256"},
	})
	if err != nil {
		return nil, err
	}

	wrapArgs, err := buildArguments([]argSpec{
		{"recipient", "address"},
		{"amount", "uint256"},
	})
	if err != nil {
		return nil, err
	}

	swapArgs, err := buildArguments([]argSpec{
		{"recipient", "address"},
		{"amountIn", "uint256"},
		{"amountOutMin", "uint256"},
		{"path", "bytes"},
		{"payerIsUser", "bool"},
	})
	if err != nil {
		return nil, err
	}

	unwrapArgs, err := buildArguments([]argSpec{
		{"recipient", "address"},
		{"amountMin", "uint256"},
	})
	if err != nil {
		return nil, err
	}

	return map[Operation]Command{
		OpMintPosition: {
			Selector: mustSelector("6d70c415"),
			Inputs:   []abi.Arguments{mintArgs},
		},
		OpSweep: {
			Selector: mustSelector("12210e8a"),
			Inputs:   []abi.Arguments{{}},
		},
		OpSwapExactInNative: {
			Commands: []byte{cmdWrapNative, cmdSwapExactIn},
			Inputs:   []abi.Arguments{wrapArgs, swapArgs},
		},
		OpSwapExactInToken: {
			Commands: []byte{cmdSwapExactIn, cmdUnwrapNative},
			Inputs:   []abi.Arguments{swapArgs, unwrapArgs},
		},
	}, nil
}

func commandRegistry() (map[Operation]Command, error) {
	commandsOnce.Do(func() {
		commandsMap, commandsErr = buildCommands()
	})
	return commandsMap, commandsErr
}

func lookupCommand(op Operation) (Command, error) {
	registry, err := commandRegistry()
	if err != nil {
		return Command{}, err
	}
	cmd, ok := registry[op]
	if !ok {
		return Command{}, model.Errf(model.KindUnknownOperation, "operation %s is not registered", op)
	}
	return cmd, nil
}

// EncodeCall encodes a selector-prefixed function call for a multicall-style
// operation. The value order must match the registered schema exactly.
func EncodeCall(op Operation, values ...interface{}) ([]byte, error) {
	cmd, err := lookupCommand(op)
	if err != nil {
		return nil, err
	}
	if cmd.Selector == nil {
		return nil, model.Errf(model.KindUnknownOperation, "operation %s is not selector-addressed", op)
	}

	packed, err := packArgs(op, cmd.Inputs[0], values)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(cmd.Selector)+len(packed))
	out = append(out, cmd.Selector...)
	return append(out, packed...), nil
}

// DecodeCall reverses EncodeCall for a registered operation.
func DecodeCall(op Operation, data []byte) ([]interface{}, error) {
	cmd, err := lookupCommand(op)
	if err != nil {
		return nil, err
	}
	if cmd.Selector == nil {
		return nil, model.Errf(model.KindUnknownOperation, "operation %s is not selector-addressed", op)
	}
	if len(data) < 4 || !bytes.Equal(data[:4], cmd.Selector) {
		return nil, fmt.Errorf("selector mismatch for %s", op)
	}
	return cmd.Inputs[0].Unpack(data[4:])
}

// EncodeInputs encodes the input blobs for an execute-style operation and
// returns them with the operation's command bitmap. One value group is
// required per registered input schema, in declared order.
func EncodeInputs(op Operation, groups ...[]interface{}) (ExecutePlan, error) {
	cmd, err := lookupCommand(op)
	if err != nil {
		return ExecutePlan{}, err
	}
	if cmd.Commands == nil {
		return ExecutePlan{}, model.Errf(model.KindUnknownOperation, "operation %s is not execute-addressed", op)
	}
	if len(groups) != len(cmd.Inputs) {
		return ExecutePlan{}, model.Errf(model.KindArityMismatch,
			"operation %s wants %d input groups, got %d", op, len(cmd.Inputs), len(groups))
	}

	inputs := make([][]byte, 0, len(groups))
	for i, group := range groups {
		packed, err := packArgs(op, cmd.Inputs[i], group)
		if err != nil {
			return ExecutePlan{}, err
		}
		inputs = append(inputs, packed)
	}

	return ExecutePlan{Commands: append([]byte(nil), cmd.Commands...), Inputs: inputs}, nil
}

// DecodeInput reverses one input blob of an execute-style operation.
func DecodeInput(op Operation, index int, data []byte) ([]interface{}, error) {
	cmd, err := lookupCommand(op)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(cmd.Inputs) {
		return nil, fmt.Errorf("operation %s has no input %d", op, index)
	}
	return cmd.Inputs[index].Unpack(data)
}

func packArgs(op Operation, args abi.Arguments, values []interface{}) ([]byte, error) {
	if len(values) != len(args) {
		return nil, model.Errf(model.KindArityMismatch,
			"operation %s wants %d arguments, got %d", op, len(args), len(values))
	}
	packed, err := args.Pack(values...)
	if err != nil {
		return nil, model.Errf(model.KindArityMismatch, "operation %s: %v", op, err)
	}
	return packed, nil
}
