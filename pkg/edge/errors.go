package edge

import "errors"

var (
	ErrMissingCredentials = errors.New("edge: api token and zone id are required")
	ErrEmptyHostname      = errors.New("edge: hostname is required")
	ErrEmptyID            = errors.New("edge: custom hostname id is required")
	ErrCreateFailed       = errors.New("edge: failed to create custom hostname")
	ErrDeleteFailed       = errors.New("edge: failed to delete custom hostname")
	ErrStatusFailed       = errors.New("edge: failed to check custom hostname status")
)
