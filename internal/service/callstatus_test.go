package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxlane/call-bridge-go/internal/model"
)

func TestMapTelephonyStatus(t *testing.T) {
	tests := []struct {
		vendor string
		want   model.CallStatus
	}{
		{"queued", model.CallStatusInitiated},
		{"initiated", model.CallStatusInitiated},
		{"ringing", model.CallStatusRinging},
		{"answered", model.CallStatusAnswered},
		{"in-progress", model.CallStatusInProgress},
		{"completed", model.CallStatusCompleted},
		{"busy", model.CallStatusBusy},
		{"failed", model.CallStatusFailed},
		{"no-answer", model.CallStatusNoAnswer},
		{"canceled", model.CallStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.vendor, func(t *testing.T) {
			got, ok := MapTelephonyStatus(tt.vendor)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown vocabulary rejected", func(t *testing.T) {
		_, ok := MapTelephonyStatus("teleporting")
		assert.False(t, ok)
	})
}
