package testing

import (
	"flag"
	"testing"
)

var (
	Integration = flag.Bool("integration", false, "run integration tests")
	Algorithm   = flag.String("algorithm", "", "restrict scheme tests to a single signature algorithm")
)

// SkipIfIntegration skips the test if -integration flag is set (for unit tests)
func SkipIfIntegration(t *testing.T) {
	if *Integration {
		t.Skip("Skipping unit test when running integration tests")
	}
}

// SkipIfNotIntegration skips the test if -integration flag is not set (for integration tests)
func SkipIfNotIntegration(t *testing.T) {
	if !*Integration {
		t.Skip("Skipping integration test")
	}
}

// SkipUnlessAlgorithm skips the test if -algorithm is set to a different algorithm
func SkipUnlessAlgorithm(t *testing.T, algorithm string) {
	if *Algorithm != "" && *Algorithm != algorithm {
		t.Skipf("Skipping %s, restricted to %s", algorithm, *Algorithm)
	}
}
