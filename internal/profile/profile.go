// Package profile holds the compliance controls shipped with reachprobe.
package profile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hazz-dev/reachprobe/internal/checker"
	"github.com/hazz-dev/reachprobe/internal/config"
	"github.com/hazz-dev/reachprobe/internal/control"
	"github.com/hazz-dev/reachprobe/internal/probe"
)

// AttrGitLabURL names the attribute holding the GitLab URL, e.g. https://gitlab.example.com.
const AttrGitLabURL = "gitlab_url"

// Deps are the collaborators handed to the probes. Nil checkers are replaced
// by real TCP and HTTP checkers built from the probe config.
type Deps struct {
	Reach    checker.Checker
	Fetch    checker.Checker
	Sleep    probe.SleepFunc
	Notices  io.Writer
	Recorder probe.Recorder
	Logger   *slog.Logger
}

// Controls returns every control of the profile, built from cfg.
func Controls(cfg *config.Config, deps Deps) ([]*control.Control, error) {
	gitlab, err := GitLab(cfg.Attributes, cfg.Probe, deps)
	if err != nil {
		return nil, err
	}
	return []*control.Control{gitlab}, nil
}

// GitLab builds control "gcloud": the GitLab URL answers an HTTP GET after
// its host has been sampled for TCP reachability.
func GitLab(attrs map[string]string, cfg config.ProbeConfig, deps Deps) (*control.Control, error) {
	url := strings.TrimSpace(attrs[AttrGitLabURL])
	if url == "" {
		return nil, fmt.Errorf("attribute %q is required", AttrGitLabURL)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reach := deps.Reach
	if reach == nil {
		reach = checker.NewTCP(cfg.DialTimeout.Duration)
	}
	fetch := deps.Fetch
	if fetch == nil {
		fetch = checker.NewHTTP(checker.Options{
			Timeout: cfg.RequestTimeout.Duration,
			Headers: cfg.Headers,
		})
	}

	p := probe.New(probe.Options{
		Name:     cfg.Name,
		Attempts: cfg.Attempts,
		Delay:    cfg.Delay.Duration,
		Port:     cfg.Port,
	}, reach, fetch, logger)
	if deps.Sleep != nil {
		p.SetSleep(deps.Sleep)
	}
	if deps.Notices != nil {
		p.SetNotices(deps.Notices)
	}
	if deps.Recorder != nil {
		p.SetRecorder(deps.Recorder)
	}

	c := control.New("gcloud", "gitlab url")
	c.Describe("gitlab").It("is reachable", func(ctx context.Context) error {
		out, err := p.Run(ctx, url)
		if err != nil {
			return err
		}
		// The GET alone decides; flag a host that never accepted a sample.
		if rerr := out.Reachability(); rerr != nil {
			logger.Warn("request succeeded but every reachability sample failed",
				"host", out.Host,
				"error", rerr,
			)
		}
		return nil
	})
	return c, nil
}
