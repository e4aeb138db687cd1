package domain

import "errors"

var (
	// ErrPuzzleNotFound indicates no puzzle is published for the requested date.
	ErrPuzzleNotFound = errors.New("puzzle not found")
	// ErrEmptyPuzzle is returned when a loaded puzzle carries no rounds.
	ErrEmptyPuzzle = errors.New("puzzle has no rounds")
	// ErrDuplicateRound indicates a puzzle with non-unique round indexes.
	ErrDuplicateRound = errors.New("duplicate round index")
	// ErrNotLoaded is returned when a session operation runs before a puzzle load.
	ErrNotLoaded = errors.New("session not loaded")
	// ErrUnanswered is returned when advancing past a round with no recorded choice.
	ErrUnanswered = errors.New("unanswered")
	// ErrRoundLocked is returned when writing a choice for a round that is no longer editable.
	ErrRoundLocked = errors.New("round locked")
	// ErrIncomplete indicates a submission attempted before every round is answered.
	ErrIncomplete = errors.New("answers incomplete")
	// ErrSubmitInFlight rejects a second submit while one is outstanding.
	ErrSubmitInFlight = errors.New("submission in flight")
	// ErrFinalized rejects mutations after an attempt result has been recorded.
	ErrFinalized = errors.New("attempt finalized")
	// ErrStaleSession indicates a response arrived for a session that was reloaded.
	ErrStaleSession = errors.New("stale session")
	// ErrDateMismatch indicates an attempt for a date other than today's puzzle.
	ErrDateMismatch = errors.New("puzzle date mismatch")
	// ErrUnknownRound indicates an answer keyed by a round not in the puzzle.
	ErrUnknownRound = errors.New("unknown round")
	// ErrBadChoice indicates an answer value outside real/ai.
	ErrBadChoice = errors.New("invalid choice")
	// ErrMissingUser indicates a request with no user identity attached.
	ErrMissingUser = errors.New("missing user id")
)
