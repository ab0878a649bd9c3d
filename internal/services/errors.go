// Package services holds the application logic of the memory-serving
// backend: catalog search, patient query orchestration, agent conversation
// and session administration. This file centralizes the service-level error
// values so that handlers can map them to HTTP results consistently.
package services

import "errors"

// Request validation errors.
var (
	// ErrEmptyPatient is returned when a patient id is blank after trimming.
	ErrEmptyPatient = errors.New("patient_id is empty")

	// ErrEmptyTopic is returned when a topic is blank after trimming.
	ErrEmptyTopic = errors.New("topic is empty")

	// ErrEmptyUtterance is returned when the transcription is blank.
	ErrEmptyUtterance = errors.New("transcription is empty")

	// ErrTooLong is returned when an utterance exceeds the configured rune limit.
	ErrTooLong = errors.New("transcription too long")

	// ErrInvalidMode is returned for an explicit display mode that is not one
	// of the six known modes.
	ErrInvalidMode = errors.New("invalid display mode")

	// ErrInvalidMemory is returned by imports containing an unusable record.
	ErrInvalidMemory = errors.New("invalid memory record")

	// ErrInvalidCache is returned when a cache name is not "memories" or "llm".
	ErrInvalidCache = errors.New("unknown cache type")
)

// Lookup errors.
var (
	// ErrNoMemories indicates that no catalogued memory matches the topic.
	ErrNoMemories = errors.New("no memories found")

	// ErrMemoryNotFound indicates that a memory id does not exist.
	ErrMemoryNotFound = errors.New("memory not found")

	// ErrAgentNotFound indicates that no agent profile has the requested name.
	ErrAgentNotFound = errors.New("agent not found")
)

// ErrGeneration is returned when no language model produced an agent reply.
var ErrGeneration = errors.New("response generation failed")
