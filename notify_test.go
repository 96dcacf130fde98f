package notify

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that the package's test suite leaves no backend drain
// goroutine running once every Controller/backend has been Close()'d — the
// leak mode this package's background-goroutine shape is prone to if a test
// forgets to close what it opened.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
