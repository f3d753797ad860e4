package solana

import "fmt"

// InvalidInputError reports caller input that could not be decoded: a
// malformed base58 address, a secret key of the wrong length, or a
// non-positive amount. Handlers map it to HTTP 400.
type InvalidInputError struct {
	Field string
	Err   error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// NetworkError reports a transport-level failure to complete an RPC call
// against the remote ledger. The caller is responsible for re-invoking;
// no retry happens here.
type NetworkError struct {
	Op  string // RPC method name, e.g. "getBalance"
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// InsufficientBalanceError is returned by Transfer when the freshly queried
// sender balance cannot cover the requested amount. It is raised before any
// broadcast, so no ledger state has changed.
type InsufficientBalanceError struct {
	RequiredLamports  uint64
	AvailableLamports uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %d lamports, available %d lamports",
		e.RequiredLamports, e.AvailableLamports)
}

// SubmissionError reports a failure after the transfer preconditions passed:
// building, signing, broadcasting, or waiting for confirmation. A broadcast
// may have reached the network, so resubmitting after one of these can
// double-send.
type SubmissionError struct {
	Stage string // "build", "sign", "broadcast", or "confirm"
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("transfer %s failed: %v", e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
