package engine

import "errors"

var (
	// ErrRemoteFetch means the remote service could not download the media URL.
	ErrRemoteFetch = errors.New("remote service could not fetch media")
	// ErrRemoteFailed means the remote job finished in a failed state.
	ErrRemoteFailed = errors.New("remote job failed")
	// ErrNoSpeech means the remote service found nothing to transcribe.
	ErrNoSpeech = errors.New("no speech in media")
	// ErrRemoteTimeout means the job did not finish within the engine timeout.
	ErrRemoteTimeout = errors.New("remote job timed out")
	// ErrLocalFailed means a local model subprocess failed.
	ErrLocalFailed = errors.New("local transcription failed")
)
