// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package apperr defines the error taxonomy shared by the orchestrator,
// executor and persistence gateway. Every member is a plain sentinel
// so callers use errors.Is/errors.As, never string matching.
package apperr

import "errors"

var (
	ErrRuleNotFound        = errors.New("RULE_NOT_FOUND")
	ErrRuleDisabled        = errors.New("RULE_DISABLED")
	ErrRuleInvalid         = errors.New("RULE_INVALID")
	ErrUpstreamUnavailable = errors.New("UPSTREAM_UNAVAILABLE")
	ErrUpstreamAuth        = errors.New("UPSTREAM_AUTH")
	ErrUpstreamBadResponse = errors.New("UPSTREAM_BAD_RESPONSE")
	ErrPersistence         = errors.New("PERSISTENCE_ERROR")
	ErrDeleteFailed        = errors.New("DELETE_FAILED")
	ErrUnknown             = errors.New("UNKNOWN")
)

// Code returns the taxonomy member err is wrapped with, or ErrUnknown if
// none of the known sentinels match.
func Code(err error) error {
	for _, sentinel := range []error{
		ErrRuleNotFound, ErrRuleDisabled, ErrRuleInvalid,
		ErrUpstreamUnavailable, ErrUpstreamAuth, ErrUpstreamBadResponse,
		ErrPersistence, ErrDeleteFailed,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return ErrUnknown
}
