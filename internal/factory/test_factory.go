package factory

import (
	"time"

	"github.com/mcoot/rpsduel-go/internal/dependencies/mocks"
	"github.com/mcoot/rpsduel-go/internal/storage/memory"
	"github.com/mcoot/rpsduel-go/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Sink       *testutil.RecordingSink
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	sink := testutil.NewRecordingSink()

	app := newWithDependencies(store, mockClock, mockRandom, sink, Config{}, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Sink:       sink,
	}
}
