package common

// Reserved account ids.
const (
	// MetaContractAccountID hosts create-account/transfer-ownership.
	MetaContractAccountID uint32 = 0
	// CKBSudtAccountID is the native capacity SUDT, always account 1.
	CKBSudtAccountID uint32 = 1
)

// RunResult is what a Generator returns after executing one Layer-2
// transaction against a state view.
type RunResult struct {
	ReturnData       []byte
	ExitCode         int8
	Logs             []LogItem
	CyclesExecution  uint64
	CyclesVirtual    uint64
	ReadDataHashes   []Hash
	WriteDataHashes  []Hash
	AccountCountAfter uint32
}

// Success reports whether the transaction completed without reverting.
func (r RunResult) Success() bool { return r.ExitCode == 0 }

// LogItem is one entry in a RunResult's log stream.
type LogItem struct {
	AccountID uint32
	Service   uint8
	Data      []byte
}
