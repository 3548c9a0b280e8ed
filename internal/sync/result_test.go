// ABOUTME: Tests for user-facing sync status messages.
package sync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		err  error
		want string
	}{
		{"error", Result{Added: 3}, errors.New("weight observer sync: boom"), "weight observer sync: boom"},
		{"skipped", Result{Skipped: SkipSuppressed}, nil, ""},
		{"nothing", Result{}, nil, "up to date"},
		{"one", Result{Added: 1}, nil, "1 entry synced"},
		{"added and removed", Result{Added: 2, Removed: 3}, nil, "5 entries synced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusMessage(tt.res, tt.err))
		})
	}
}

func TestResultChanged(t *testing.T) {
	assert.False(t, Result{Fetched: 4}.Changed())
	assert.True(t, Result{Removed: 1}.Changed())
}
