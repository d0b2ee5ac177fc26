package session

import (
	"fmt"

	"github.com/MrWong99/micscribe/internal/capture"
	"github.com/MrWong99/micscribe/pkg/provider/stt"
)

// Status is the outcome of the transcription stage.
type Status string

const (
	// StatusRecognized means the provider returned text.
	StatusRecognized Status = "recognized"

	// StatusNoSpeech means nothing was recorded, so the provider was not called.
	StatusNoSpeech Status = "no_speech"

	// StatusUnintelligible means the provider answered but found no speech.
	StatusUnintelligible Status = "unintelligible"

	// StatusFailed means the provider could not be reached or rejected the
	// request.
	StatusFailed Status = "failed"
)

// TranscriptResult is the outcome of one transcription attempt.
type TranscriptResult struct {
	Status Status

	// Text is set only for StatusRecognized.
	Text string

	// Transcript holds the provider's full answer for StatusRecognized.
	Transcript stt.Transcript

	// Err is set for StatusUnintelligible and StatusFailed.
	Err error
}

// Result is everything a session produced.
type Result struct {
	// ID identifies the session in logs and traces.
	ID string

	Recording *capture.Recording

	// AudioPath is where the WAV file was written; empty if saving failed or
	// was skipped.
	AudioPath string

	Transcript TranscriptResult

	// TranscriptPath is where the text was written; empty unless a
	// transcript was recognised and saved.
	TranscriptPath string
}

// Stage is the step a [Session] is currently executing.
type Stage int32

const (
	StageIdle Stage = iota
	StageRecording
	StagePersisting
	StageTranscribing
	StageVisualizing
	StageFinished
	StageFailed
)

var stageNames = [...]string{"idle", "recording", "persisting", "transcribing", "visualizing", "finished", "failed"}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int32(s))
}
