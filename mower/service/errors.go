package service

import "errors"

var (
	ErrRunNotFound    = errors.New("run not found")
	ErrRunFinished    = errors.New("run already finished")
	ErrRunNotFinished = errors.New("run has no route yet")
	ErrYardNotFound   = errors.New("yard configuration not found")
	ErrInvalidRequest = errors.New("invalid request")
)
