package alert

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/hazz-dev/reachprobe/internal/control"
)

// Alerter sends webhook notifications when a control flips between passed and failed.
type Alerter struct {
	webhookURL string
	cooldown   time.Duration
	client     *http.Client
	lastAlert  map[string]time.Time
	mu         sync.Mutex
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// New creates a new Alerter. Pass nil logger to use the default logger.
func New(webhookURL string, cooldown time.Duration, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = 10 * time.Second
	return &Alerter{
		webhookURL: webhookURL,
		cooldown:   cooldown,
		client:     client,
		lastAlert:  make(map[string]time.Time),
		logger:     logger,
	}
}

type webhookPayload struct {
	Control        string `json:"control"`
	Title          string `json:"title"`
	Example        string `json:"example"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status"`
	Error          string `json:"error"`
	DurationMs     int64  `json:"duration_ms"`
	StartedAt      string `json:"started_at"`
	Source         string `json:"source"`
}

// Notify sends a webhook if the control's status changed and the cooldown has elapsed.
func (a *Alerter) Notify(result control.Result, previousStatus *control.Status) {
	// No previous status means first run.
	if previousStatus == nil {
		return
	}
	if result.Status == *previousStatus {
		return
	}

	a.mu.Lock()
	last, exists := a.lastAlert[result.Control]
	if exists && time.Since(last) < a.cooldown {
		a.mu.Unlock()
		a.logger.Info("alert suppressed by cooldown", "control", result.Control)
		return
	}
	a.lastAlert[result.Control] = time.Now()
	a.mu.Unlock()

	// Send asynchronously so Notify doesn't block the scheduler.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.send(result, string(*previousStatus))
	}()
}

// Wait blocks until in-flight webhooks have been sent.
func (a *Alerter) Wait() {
	a.wg.Wait()
}

func (a *Alerter) send(result control.Result, prevStatus string) {
	payload := webhookPayload{
		Control:        result.Control,
		Title:          result.Title,
		Example:        result.Name(),
		Status:         string(result.Status),
		PreviousStatus: prevStatus,
		Error:          result.Error,
		DurationMs:     result.Duration.Milliseconds(),
		StartedAt:      result.StartedAt.UTC().Format(time.RFC3339),
		Source:         "reachprobe",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		a.logger.Error("marshaling webhook payload", "control", result.Control, "error", err)
		return
	}

	resp, err := a.client.Post(a.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		a.logger.Error("sending webhook", "control", result.Control, "url", a.webhookURL, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		a.logger.Warn("webhook returned non-2xx status",
			"control", result.Control,
			"status", resp.StatusCode,
		)
	}
}
