package deepface

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDeepFaceUnavailable = errors.New("deepface service unavailable")
	ErrInvalidResponse     = errors.New("invalid response from deepface")
)

// noFaceMarker is the message DeepFace returns when detection is enforced and no face is found
const noFaceMarker = "face could not be detected"

// StatusError is a non-2xx answer from the DeepFace API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("deepface returned status %d: %s", e.StatusCode, e.Body)
}

// IsClientError reports a 4xx answer, which is never retried
func (e *StatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsNoFace reports whether DeepFace rejected the image because no face was detected
func (e *StatusError) IsNoFace() bool {
	return e.IsClientError() && strings.Contains(strings.ToLower(e.Body), noFaceMarker)
}
