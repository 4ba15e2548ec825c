package testsupport

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	// Global counter for generating unique sequential IDs in tests
	testSequence uint64

	// Base timestamp to make names shorter
	baseTimestamp = time.Now().UnixNano()
)

func init() {
	// Initialize with current timestamp to ensure uniqueness across test runs
	testSequence = uint64(baseTimestamp % 1000000)
}

// NextSequence returns next unique sequence number
func NextSequence() uint64 {
	return atomic.AddUint64(&testSequence, 1)
}

// UniqueName generates a unique name with given prefix
// Example: UniqueName("test_branch") -> "test_branch_123456"
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, NextSequence())
}

// UniqueMemberID generates a unique member ID for testing
// Returns ID in range [100000000, 999999999] to stay clear of real fixtures
func UniqueMemberID() int64 {
	seq := NextSequence()
	return 100000000 + int64(seq%900000000)
}

// UniqueBranchID generates a unique branch ID for testing
func UniqueBranchID() int64 {
	return 1000 + int64(NextSequence()%9000)
}

// UniqueString generates a unique string identifier
// Useful when you need guaranteed uniqueness (uses UUID)
func UniqueString() string {
	return uuid.New().String()
}

// UniqueModelVersion generates a unique model version label
// Example: UniqueModelVersion() -> "vtest_123456"
func UniqueModelVersion() string {
	return fmt.Sprintf("vtest_%d", NextSequence())
}
