// Package apperrors holds the sentinel errors shared by the dataset and
// shell services. Tool handlers map them to structured error codes.
package apperrors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyResult  = errors.New("empty result")
	ErrCollision    = errors.New("materialized file collision")
	ErrToolDisabled = errors.New("tool disabled")
)
