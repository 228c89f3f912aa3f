package backend

import (
	"encoding/binary"
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// Polyjuice instruction opcodes. A real EVM-compatible backend would
// interpret EVM bytecode; this one implements just the storage and
// log primitives needed to exercise contract-like accounts,
// encoded as a short fixed-width instruction stream rather than
// bytecode, so generator tests can drive contract storage without an
// EVM interpreter dependency.
const (
	polyOpSStore byte = 0 // key(32) value(32)
	polyOpLog    byte = 1 // data_len(4 BE) data
	polyOpStop   byte = 2 // no operands; ends the stream
)

// PolyjuiceBackend is the generalised-contract backend: one instance
// per deployed contract account, all routed through the same
// instruction interpreter. Grounded on pkg/rollup/execution_context.go's
// trace/record bookkeeping, narrowed from a full nested-call EVM model
// to a single flat instruction stream (no CALL opcode: cross-account
// value movement in this node goes through the sudt backend instead).
type PolyjuiceBackend struct{}

// NewPolyjuiceBackend returns the stateless singleton contract backend.
func NewPolyjuiceBackend() *PolyjuiceBackend { return &PolyjuiceBackend{} }

func (b *PolyjuiceBackend) Checksum() common.Hash {
	return common.Hash(gwcrypto.Blake2b256([]byte("backend/polyjuice-v1")))
}

func (b *PolyjuiceBackend) Execute(ctx Context, s state.State, tx common.RawL2Transaction) (common.RunResult, error) {
	var logs []common.LogItem
	var cycles uint64
	data := tx.Args

	for len(data) > 0 {
		op := data[0]
		data = data[1:]
		cycles += 100

		switch op {
		case polyOpSStore:
			if len(data) < 64 {
				return common.RunResult{ExitCode: 1, CyclesExecution: cycles}, fmt.Errorf("backend/polyjuice: truncated SSTORE operand")
			}
			var key, value common.Hash
			copy(key[:], data[:32])
			copy(value[:], data[32:64])
			data = data[64:]
			state.SetStorage(s, ctx.ToAccountID, key, value)

		case polyOpLog:
			if len(data) < 4 {
				return common.RunResult{ExitCode: 1, CyclesExecution: cycles}, fmt.Errorf("backend/polyjuice: truncated LOG length")
			}
			n := int(binary.BigEndian.Uint32(data[:4]))
			data = data[4:]
			if len(data) < n {
				return common.RunResult{ExitCode: 1, CyclesExecution: cycles}, fmt.Errorf("backend/polyjuice: truncated LOG payload")
			}
			payload := make([]byte, n)
			copy(payload, data[:n])
			data = data[n:]
			logs = append(logs, common.LogItem{AccountID: ctx.ToAccountID, Service: 1, Data: payload})

		case polyOpStop:
			data = nil

		default:
			return common.RunResult{ExitCode: 1, CyclesExecution: cycles}, fmt.Errorf("backend/polyjuice: unknown opcode %d", op)
		}
	}

	return common.RunResult{
		ExitCode:        0,
		Logs:            logs,
		CyclesExecution: cycles,
	}, nil
}
