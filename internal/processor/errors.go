package processor

import (
	"errors"
	"net/http"

	"github.com/nguyentantai21042004/vidscribe/internal/acquisition"
	"github.com/nguyentantai21042004/vidscribe/internal/engine"
)

// CodeUnavailable marks tasks cut short by shutdown.
const CodeUnavailable = http.StatusServiceUnavailable

// Classify maps a pipeline error to the task's code and detail.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, acquisition.ErrDownload):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, acquisition.ErrConversion):
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, engine.ErrRemoteFetch):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, engine.ErrRemoteTimeout):
		return http.StatusGatewayTimeout, err.Error()
	case errors.Is(err, engine.ErrNoSpeech):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
