package services

import "errors"

// ErrDomainNotAllowed indicates the source host is not on the allow-list
var ErrDomainNotAllowed = errors.New("domain not allowed")

// ErrInvalidRequest indicates a malformed download or analyze request
var ErrInvalidRequest = errors.New("invalid request")

// ErrJobNotFound indicates an unknown job id
var ErrJobNotFound = errors.New("job not found")

// ErrFileNotFound indicates the job has no retrievable artifact
var ErrFileNotFound = errors.New("file not found")

// ErrQueueFull indicates the dispatcher cannot accept more work right now
var ErrQueueFull = errors.New("download queue is full")

// ErrUnresolvable indicates the engine returned nothing usable for a probe
var ErrUnresolvable = errors.New("could not resolve media information")
