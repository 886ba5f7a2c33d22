// Package simerrors defines the closed error taxonomy shared by every
// component of the simulation core. Errors are returned unchanged up the
// call stack unless a component's contract says otherwise (the adapter
// layer's revert reclassification, the streaming client's per-frame drops).
package simerrors

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// MissingAccount is returned when a PreCached or mocked read references an
// account the store has never seen. Fatal for the current simulation;
// recoverable by the caller via an explicit InitAccount.
type MissingAccount struct {
	Address common.Address
}

func (e *MissingAccount) Error() string {
	return fmt.Sprintf("simerrors: missing account %s", e.Address)
}

// BlockNotSet signals that an operation required a current header before
// one had been attached to the SDB. BlockHashRef does not return it: with
// no header attached it reports the zero hash.
type BlockNotSet struct{}

func (e *BlockNotSet) Error() string { return "simerrors: block header not set" }

// RPCErrorKind classifies why a lazy RPC fetch failed.
type RPCErrorKind int

const (
	RPCInvalidRequest RPCErrorKind = iota
	RPCInvalidResponse
	RPCEmptyResponse
)

func (k RPCErrorKind) String() string {
	switch k {
	case RPCInvalidRequest:
		return "InvalidRequest"
	case RPCInvalidResponse:
		return "InvalidResponse"
	case RPCEmptyResponse:
		return "EmptyResponse"
	default:
		return "Unknown"
	}
}

// RPCError wraps a failed lazy fetch against the node JSON-RPC endpoint.
// No retry happens at this layer; the error surfaces to the caller.
type RPCError struct {
	Kind RPCErrorKind
	Err  error
}

func (e *RPCError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("simerrors: rpc error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("simerrors: rpc error (%s)", e.Kind)
}

func (e *RPCError) Unwrap() error { return e.Err }

// TransactionError carries the interpreter's revert payload and gas used
// for a reverted or internally-failed execution. The adapter layer may
// reclassify it into OutOfGas; the engine itself never does.
type TransactionError struct {
	Data    []byte
	GasUsed uint64
	Message string
}

func (e *TransactionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("simerrors: transaction error: %s", e.Message)
	}
	return "simerrors: transaction reverted"
}

// OutOfGas is the reclassification of a TransactionError when gas usage
// crossed the 97% threshold, or the literal "OutOfGas" string appeared in
// the revert payload.
type OutOfGas struct {
	Message string
	PoolTag string
}

func (e *OutOfGas) Error() string {
	if e.PoolTag != "" {
		return fmt.Sprintf("simerrors: out of gas (%s): %s", e.PoolTag, e.Message)
	}
	return fmt.Sprintf("simerrors: out of gas: %s", e.Message)
}

// StorageError signals corruption or an invariant violation in account
// storage. Non-retryable.
type StorageError struct {
	Reason string
}

func (e *StorageError) Error() string { return "simerrors: storage error: " + e.Reason }

// EncodingError indicates an ABI encoding mismatch — a programming or
// configuration error, not a runtime condition callers should retry.
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string { return "simerrors: encoding error: " + e.Reason }

// DecodingError indicates an ABI decoding mismatch.
type DecodingError struct {
	Reason string
}

func (e *DecodingError) Error() string { return "simerrors: decoding error: " + e.Reason }

// FileErrorKind classifies why an on-disk asset (ABI, bytecode) failed to
// load at startup.
type FileErrorKind int

const (
	FileIO FileErrorKind = iota
	FileParse
	FileStructure
)

func (k FileErrorKind) String() string {
	switch k {
	case FileIO:
		return "Io"
	case FileParse:
		return "Parse"
	case FileStructure:
		return "Structure"
	default:
		return "Unknown"
	}
}

// FileError wraps an asset load failure. Fatal at startup.
type FileError struct {
	Kind FileErrorKind
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("simerrors: file error (%s) loading %q: %v", e.Kind, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// StreamClientErrorKind classifies a streaming/snapshot client failure.
type StreamClientErrorKind int

const (
	StreamURIParsing StreamClientErrorKind = iota
	StreamFormatRequest
	StreamHTTPClient
	StreamParseResponse
)

func (k StreamClientErrorKind) String() string {
	switch k {
	case StreamURIParsing:
		return "UriParsing"
	case StreamFormatRequest:
		return "FormatRequest"
	case StreamHTTPClient:
		return "HttpClient"
	case StreamParseResponse:
		return "ParseResponse"
	default:
		return "Unknown"
	}
}

// StreamClientError wraps a failure from the streaming state client. Only
// this taxonomy member is ever intentionally swallowed by its owner (the
// per-frame decode path logs and drops rather than propagating).
type StreamClientError struct {
	Kind StreamClientErrorKind
	Err  error
}

func (e *StreamClientError) Error() string {
	return fmt.Sprintf("simerrors: stream client error (%s): %v", e.Kind, e.Err)
}

func (e *StreamClientError) Unwrap() error { return e.Err }
