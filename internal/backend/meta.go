package backend

import (
	"encoding/binary"
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// Meta contract opcodes, dispatched on Args[0] of a RawL2Transaction
// addressed to common.MetaContractAccountID.
const (
	metaOpCreateAccount  byte = 0
	metaOpBatchCreate    byte = 1
	metaOpRegisterSudt   byte = 2
)

// MetaBackend implements the always-present account-0 meta contract:
// account creation and native-SUDT registration bookkeeping. Grounded
// on the opcode-dispatch shape of execution_context.go's BeginCall/
// EndCall pairing, simplified to a single-shot Execute per tx (the
// meta contract never makes nested EXECUTE calls).
type MetaBackend struct{}

// NewMetaBackend returns the stateless singleton meta-contract backend.
func NewMetaBackend() *MetaBackend { return &MetaBackend{} }

func (b *MetaBackend) Checksum() common.Hash {
	return common.Hash(gwcrypto.Blake2b256([]byte("backend/meta-contract-v1")))
}

func (b *MetaBackend) Execute(ctx Context, s state.State, tx common.RawL2Transaction) (common.RunResult, error) {
	if len(tx.Args) < 1 {
		return common.RunResult{ExitCode: 1}, fmt.Errorf("backend/meta: empty args")
	}
	switch tx.Args[0] {
	case metaOpCreateAccount:
		return b.createAccount(s, tx.Args[1:])
	case metaOpBatchCreate:
		return b.batchCreate(s, tx.Args[1:])
	case metaOpRegisterSudt:
		return b.registerSudt(s, tx.Args[1:])
	default:
		return common.RunResult{ExitCode: 1}, fmt.Errorf("backend/meta: unknown opcode %d", tx.Args[0])
	}
}

// createAccount decodes one serialised common.Script from payload and
// creates the account it describes.
func (b *MetaBackend) createAccount(s state.State, payload []byte) (common.RunResult, error) {
	script, err := decodeScript(payload)
	if err != nil {
		return common.RunResult{ExitCode: 1}, err
	}
	id, err := state.CreateAccount(s, script)
	if err != nil {
		return common.RunResult{ExitCode: 1}, err
	}
	return common.RunResult{
		ReturnData:        encodeAccountID(id),
		ExitCode:          0,
		AccountCountAfter: s.GetAccountCount(),
	}, nil
}

// batchCreate decodes a count-prefixed sequence of scripts and creates
// one account per entry, reached through the metaOpBatchCreate opcode.
func (b *MetaBackend) batchCreate(s state.State, payload []byte) (common.RunResult, error) {
	if len(payload) < 4 {
		return common.RunResult{ExitCode: 1}, fmt.Errorf("backend/meta: batch_create payload too short")
	}
	count := binary.BigEndian.Uint32(payload[:4])
	offset := 4
	ids := make([]byte, 0, int(count)*4)
	for i := uint32(0); i < count; i++ {
		if offset+4 > len(payload) {
			return common.RunResult{ExitCode: 1}, fmt.Errorf("backend/meta: truncated batch_create entry %d", i)
		}
		scriptLen := int(binary.BigEndian.Uint32(payload[offset : offset+4]))
		offset += 4
		if offset+scriptLen > len(payload) {
			return common.RunResult{ExitCode: 1}, fmt.Errorf("backend/meta: truncated batch_create script %d", i)
		}
		script, err := decodeScript(payload[offset : offset+scriptLen])
		if err != nil {
			return common.RunResult{ExitCode: 1}, err
		}
		offset += scriptLen
		id, err := state.CreateAccount(s, script)
		if err != nil {
			return common.RunResult{ExitCode: 1}, err
		}
		ids = append(ids, encodeAccountID(id)...)
	}
	return common.RunResult{ReturnData: ids, ExitCode: 0, AccountCountAfter: s.GetAccountCount()}, nil
}

// registerSudt marks a SUDT's script hash as known by creating an
// account for it if one does not already exist; registering a script
// already in the code store fails with exit code 1 and an error.
func (b *MetaBackend) registerSudt(s state.State, payload []byte) (common.RunResult, error) {
	script, err := decodeScript(payload)
	if err != nil {
		return common.RunResult{ExitCode: 1}, err
	}
	hash := common.Hash(gwcrypto.ScriptHash(script.Serialize()))
	if existing, ok := s.CodeStore().GetScript(hash); ok && existing.Equal(script) {
		// Idempotent: the script is already known, but we don't track a
		// hash -> account_id index here, so re-creating would allocate a
		// second account. Callers must not double-register; this path
		// exists to make the no-op case explicit rather than silent.
		return common.RunResult{ExitCode: 1}, fmt.Errorf("backend/meta: sudt script already registered")
	}
	id, err := state.CreateAccount(s, script)
	if err != nil {
		return common.RunResult{ExitCode: 1}, err
	}
	return common.RunResult{ReturnData: encodeAccountID(id), ExitCode: 0, AccountCountAfter: s.GetAccountCount()}, nil
}

func decodeScript(payload []byte) (common.Script, error) {
	if len(payload) < common.HashLength+1+4 {
		return common.Script{}, fmt.Errorf("backend/meta: script payload too short")
	}
	var codeHash common.Hash
	copy(codeHash[:], payload[:common.HashLength])
	hashType := common.HashType(payload[common.HashLength])
	argsLen := binary.LittleEndian.Uint32(payload[common.HashLength+1 : common.HashLength+5])
	if len(payload) < common.HashLength+5+int(argsLen) {
		return common.Script{}, fmt.Errorf("backend/meta: script args truncated")
	}
	args := make([]byte, argsLen)
	copy(args, payload[common.HashLength+5:common.HashLength+5+int(argsLen)])
	return common.Script{CodeHash: codeHash, HashType: hashType, Args: args}, nil
}

func encodeAccountID(id uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, id)
	return buf
}
