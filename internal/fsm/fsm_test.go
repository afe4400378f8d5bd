// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanState string
type scanEvent string

const (
	stateRunning   scanState = "RUNNING"
	stateCompleted scanState = "COMPLETED"
	stateFailed    scanState = "FAILED"

	eventSucceed scanEvent = "succeed"
	eventFail    scanEvent = "fail"
)

func newScanMachine(t *testing.T) *Machine[scanState, scanEvent] {
	t.Helper()
	m, err := New(stateRunning, []Transition[scanState, scanEvent]{
		{From: stateRunning, Event: eventSucceed, To: stateCompleted},
		{From: stateRunning, Event: eventFail, To: stateFailed},
	})
	require.NoError(t, err)
	return m
}

func TestFireAppliesKnownTransition(t *testing.T) {
	m := newScanMachine(t)
	to, err := m.Fire(context.Background(), eventSucceed)
	require.NoError(t, err)
	assert.Equal(t, stateCompleted, to)
	assert.Equal(t, stateCompleted, m.State())
}

func TestFireRejectsUnknownTransition(t *testing.T) {
	m := newScanMachine(t)
	_, err := m.Fire(context.Background(), eventSucceed)
	require.NoError(t, err)

	// Scan is terminal; no transition out of COMPLETED is registered.
	_, err = m.Fire(context.Background(), eventFail)
	assert.Error(t, err)
	assert.Equal(t, stateCompleted, m.State())
}

func TestNewRejectsDuplicateTransitions(t *testing.T) {
	_, err := New(stateRunning, []Transition[scanState, scanEvent]{
		{From: stateRunning, Event: eventSucceed, To: stateCompleted},
		{From: stateRunning, Event: eventSucceed, To: stateFailed},
	})
	assert.Error(t, err)
}

func TestFireAbortsOnGuardRejection(t *testing.T) {
	guardErr := errors.New("guard rejected")
	m, err := New(stateRunning, []Transition[scanState, scanEvent]{
		{From: stateRunning, Event: eventSucceed, To: stateCompleted, Guard: func(ctx context.Context, from scanState, event scanEvent) error {
			return guardErr
		}},
	})
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), eventSucceed)
	assert.ErrorIs(t, err, guardErr)
	assert.Equal(t, stateRunning, m.State())
}
