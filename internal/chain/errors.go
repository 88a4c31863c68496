package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveNodes возникает, когда в пуле нет ни одного живого узла
	ErrNoActiveNodes = errors.New("no active JSON-RPC nodes available")

	// ErrReceiptTimeout возникает, когда транзакция не попала в блок вовремя
	ErrReceiptTimeout = errors.New("timed out waiting for transaction receipt")
)

// Error annotates a JSON-RPC failure with the node and method involved.
type Error struct {
	Err     error
	NodeURL string
	Method  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создает новую ошибку RPC
func NewError(err error, nodeURL, method string) error {
	return &Error{
		Err:     err,
		NodeURL: nodeURL,
		Method:  method,
	}
}
