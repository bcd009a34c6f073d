package verifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner returns canned statuses per test name and records the calls.
type fakeRunner struct {
	statuses map[string]int
	messages map[string]string
	calls    []string
}

func (f *fakeRunner) run(_ context.Context, _, _, test string) (string, int, error) {
	f.calls = append(f.calls, test)
	return f.messages[test], f.statuses[test], nil
}

func newFakeVerifier(f *fakeRunner) *Verifier {
	v := New("verifytool", "/tmp/verify.conf", 0)
	v.run = f.run
	return v
}

func TestRunAllPreservesDeclaredOrder(t *testing.T) {
	fake := &fakeRunner{
		statuses: map[string]int{"sanity": 0, "smoke": 0, "snapshot": 0},
		messages: map[string]string{"sanity": "ok", "smoke": "ok", "snapshot": "ok"},
	}
	v := newFakeVerifier(fake)

	results, err := v.RunAll(context.Background(), []string{"snapshot", "sanity", "smoke"})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"snapshot", "sanity", "smoke"}, fake.calls)
	assert.Equal(t, "snapshot", results[0].Name)
	assert.Equal(t, "smoke", results[2].Name)
}

func TestRunAllContinuesAfterFailure(t *testing.T) {
	fake := &fakeRunner{
		statuses: map[string]int{"sanity": 0, "smoke": 1, "snapshot": 0},
		messages: map[string]string{"smoke": "instance failed to boot"},
	}
	v := newFakeVerifier(fake)

	results, err := v.RunAll(context.Background(), []string{"sanity", "smoke", "snapshot"})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, 1, results[1].Status)
	assert.Equal(t, "instance failed to boot", results[1].Message)
	assert.Equal(t, 0, results[2].Status)
}

func TestFirstFailure(t *testing.T) {
	results := []Result{
		{Name: "sanity", Status: 0},
		{Name: "smoke", Status: 2, Message: "quota exceeded"},
		{Name: "snapshot", Status: 1, Message: "later failure"},
	}

	failure := FirstFailure(results)
	require.NotNil(t, failure)
	assert.Equal(t, "smoke", failure.Name)
	assert.Equal(t, "quota exceeded", failure.Message)
}

func TestFirstFailureAllPassed(t *testing.T) {
	results := []Result{{Name: "sanity"}, {Name: "smoke"}}
	assert.Nil(t, FirstFailure(results))
}

func TestRunAllToolStartFailure(t *testing.T) {
	v := New("verifytool", "/tmp/verify.conf", 0)
	v.run = func(_ context.Context, _, _, _ string) (string, int, error) {
		return "", 0, errors.New("executable file not found")
	}

	results, err := v.RunAll(context.Background(), []string{"sanity"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotZero(t, results[0].Status)
	assert.Contains(t, results[0].Message, "not found")
}

func TestListTests(t *testing.T) {
	v := New("verifytool", "/tmp/verify.conf", 0)
	v.list = func(_ context.Context, _ string) (string, error) {
		return "sanity\nsmoke\n\n  snapshot  \n", nil
	}

	tests, err := v.ListTests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"sanity", "smoke", "snapshot"}, tests)
}

func TestListTestsToolFailure(t *testing.T) {
	v := New("verifytool", "/tmp/verify.conf", 0)
	v.list = func(_ context.Context, _ string) (string, error) {
		return "", errors.New("executable file not found")
	}

	_, err := v.ListTests(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verifytool")
}

func TestRunAllRealToolMissing(t *testing.T) {
	v := New("/nonexistent/verifytool", "/tmp/verify.conf", 0)

	results, err := v.RunAll(context.Background(), []string{"sanity"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotZero(t, results[0].Status)
}
