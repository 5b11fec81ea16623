package service

import "github.com/voxlane/call-bridge-go/internal/model"

// telephonyStatuses maps the provider's lifecycle vocabulary onto ours.
var telephonyStatuses = map[string]model.CallStatus{
	"queued":      model.CallStatusInitiated,
	"initiated":   model.CallStatusInitiated,
	"ringing":     model.CallStatusRinging,
	"answered":    model.CallStatusAnswered,
	"in-progress": model.CallStatusInProgress,
	"completed":   model.CallStatusCompleted,
	"busy":        model.CallStatusBusy,
	"failed":      model.CallStatusFailed,
	"no-answer":   model.CallStatusNoAnswer,
	"canceled":    model.CallStatusFailed,
}

// MapTelephonyStatus translates a provider status callback value. The second
// return is false for vocabulary we do not recognize; callers log and skip.
func MapTelephonyStatus(vendor string) (model.CallStatus, bool) {
	status, ok := telephonyStatuses[vendor]
	return status, ok
}
