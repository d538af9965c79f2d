package controller

import "fmt"

// ItemError is returned by ProcessBatch when an item fails without continue_on_fail.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string { return e.Err.Error() }

func (e *ItemError) Unwrap() error { return e.Err }

// InvalidInputError rejects request content before anything is sent to Bedrock.
type InvalidInputError struct {
	Field string
	Err   error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Err.Error())
}

func (e *InvalidInputError) Unwrap() error { return e.Err }
