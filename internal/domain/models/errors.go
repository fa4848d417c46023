package models

import "fmt"

// ProviderError wraps a vendor fetch failure (network, auth, rate limit).
type ProviderError struct {
	Provider string
	Symbol   string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with provider and symbol context.
func NewProviderError(provider, symbol string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Symbol: symbol, Err: err}
}

// NotFoundError means a ticker or cached entry is unknown/untracked.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// NewNotFoundError builds a NotFoundError for resource/key.
func NewNotFoundError(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

// StorageWriteError wraps a persistence failure.
type StorageWriteError struct {
	Op  string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// NewStorageWriteError wraps err with the failing operation.
func NewStorageWriteError(op string, err error) *StorageWriteError {
	return &StorageWriteError{Op: op, Err: err}
}

// InsufficientDataError means an indicator was skipped because fewer
// candles were available than its lookback requires. It never aborts
// the rest of the ticker/timeframe battery.
type InsufficientDataError struct {
	Indicator string
	Need      int
	Have      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("indicator %s: need %d candles, have %d", e.Indicator, e.Need, e.Have)
}

// NewInsufficientDataError reports a skipped indicator computation.
func NewInsufficientDataError(indicator string, need, have int) *InsufficientDataError {
	return &InsufficientDataError{Indicator: indicator, Need: need, Have: have}
}
