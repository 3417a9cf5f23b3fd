package profile_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/reachprobe/internal/checker"
	"github.com/hazz-dev/reachprobe/internal/config"
	"github.com/hazz-dev/reachprobe/internal/control"
	"github.com/hazz-dev/reachprobe/internal/profile"
)

// fakeChecker always reports status and counts its calls.
type fakeChecker struct {
	status checker.Status
	err    string
	calls  int
}

func (f *fakeChecker) Check(_ context.Context, target string) checker.CheckResult {
	f.calls++
	return checker.CheckResult{Target: target, Status: f.status, Error: f.err}
}

func noSleep(context.Context, time.Duration) error { return nil }

func run(t *testing.T, url string, reach, fetch *fakeChecker) (*control.Report, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Attributes[profile.AttrGitLabURL] = url

	var notices bytes.Buffer
	controls, err := profile.Controls(cfg, profile.Deps{
		Reach:   reach,
		Fetch:   fetch,
		Sleep:   noSleep,
		Notices: &notices,
	})
	require.NoError(t, err)
	return control.NewRunner(nil).Run(context.Background(), controls...), notices.String()
}

func TestGitLab_Registration(t *testing.T) {
	c, err := profile.GitLab(map[string]string{"gitlab_url": "https://gitlab.test"}, config.Default().Probe, profile.Deps{})
	require.NoError(t, err)
	assert.Equal(t, "gcloud", c.ID)
	assert.Equal(t, "gitlab url", c.Title)
	require.Len(t, c.Describes, 1)
	assert.Equal(t, "gitlab", c.Describes[0].Subject)
	require.Len(t, c.Describes[0].Examples, 1)
	assert.Equal(t, "is reachable", c.Describes[0].Examples[0].Name)
}

func TestGitLab_MissingAttribute(t *testing.T) {
	_, err := profile.GitLab(map[string]string{}, config.Default().Probe, profile.Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gitlab_url")

	_, err = profile.GitLab(map[string]string{"gitlab_url": "  "}, config.Default().Probe, profile.Deps{})
	require.Error(t, err)
}

// Unreachable on every sample, GET answers 200: passes with ten notices.
func TestGitLab_UnreachableThenGetOK(t *testing.T) {
	reach := &fakeChecker{status: checker.StatusDown, err: "connection refused"}
	fetch := &fakeChecker{status: checker.StatusUp}

	report, notices := run(t, "https://gitlab.test", reach, fetch)
	assert.True(t, report.Passed())
	assert.Equal(t, 10, reach.calls)
	assert.Equal(t, 1, fetch.calls)
	assert.Equal(t, 10, strings.Count(notices, "Gitlab is not reachable, retrying.."))
}

// Reachable on every sample, GET raises: fails with no notices.
func TestGitLab_ReachableThenGetFails(t *testing.T) {
	reach := &fakeChecker{status: checker.StatusUp}
	fetch := &fakeChecker{status: checker.StatusDown, err: "dial tcp: connection refused"}

	report, notices := run(t, "https://gitlab.test", reach, fetch)
	assert.False(t, report.Passed())
	require.Len(t, report.Results, 1)
	assert.Equal(t, "gcloud", report.Results[0].Control)
	assert.Equal(t, "gitlab is reachable", report.Results[0].Name())
	assert.Contains(t, report.Results[0].Error, "connection refused")
	assert.Equal(t, 10, reach.calls)
	assert.Empty(t, notices)
}
