package trie

import (
	"errors"
	"fmt"
)

// MissingNodeError is returned by the trie functions (Get, Update, Delete)
// in the case where a trie node is not present in the node database.
// It contains information necessary for retrieving the missing node.
type MissingNodeError struct {
	NodeHash []byte // hash of the missing node
	Path     []byte // hex-encoded path to the missing node
}

func (err *MissingNodeError) Error() string {
	return fmt.Sprintf("missing trie node %x (path %x)", err.NodeHash, err.Path)
}

// StorageError is returned when the backing store fails to read or write a node.
// Unlike MissingNodeError it may succeed when retried.
type StorageError struct {
	NodeHash []byte
	Err      error
}

func (err *StorageError) Error() string {
	return fmt.Sprintf("trie node %x: storage: %v", err.NodeHash, err.Err)
}

func (err *StorageError) Unwrap() error { return err.Err }

// IsMissingNode returns whether the error is a MissingNodeError.
func IsMissingNode(err error) bool {
	var e *MissingNodeError
	return errors.As(err, &e)
}

// IsRetryable returns whether the error is caused by the backing store and may be retried.
func IsRetryable(err error) bool {
	var e *StorageError
	return errors.As(err, &e)
}
