package infra

import (
	"time"
)

const (
	// The native bridge is a loopback peer, so retries start fast.
	baseDelay = 250 * time.Millisecond
	maxDelay  = 10 * time.Second
)

// CalculateBackoff returns baseDelay * 2^retryCount capped at maxDelay.
// A negative retryCount returns baseDelay.
func CalculateBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		return baseDelay
	}
	// 2^16 * 250ms is already far past maxDelay; avoids shift overflow
	if retryCount > 16 {
		return maxDelay
	}

	backoff := baseDelay << uint(retryCount)
	if backoff > maxDelay {
		return maxDelay
	}
	return backoff
}
