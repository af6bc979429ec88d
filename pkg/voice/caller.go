package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carebridge/carebridge/pkg/config"
	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/metrics"
)

// SyntheticTranscript is returned when the provider rejects the call on its
// daily quota or voice calling is not configured. Keeps demos stable.
const SyntheticTranscript = "Shelter has 12 beds available, wheelchair accessible, offers meals and counseling services. Confirmed for tonight."

// Result is the outcome of one shelter-availability call.
type Result struct {
	OK         bool   `json:"ok"`
	Transcript string `json:"transcript"`
	EndState   string `json:"end_state"`
	DemoMode   bool   `json:"demo_mode"`
}

// Caller owns the outbound call lifecycle: initiate, poll every
// PollInterval until terminal or the deadline, reconstruct the final
// transcript.
type Caller struct {
	client *Client
	cfg    config.VoiceConfig
	logger *slog.Logger
}

// NewCaller creates a caller. client may be nil when voice calling is not
// configured; calls then degrade to the synthetic transcript.
func NewCaller(client *Client, cfg config.VoiceConfig) *Caller {
	return &Caller{
		client: client,
		cfg:    cfg,
		logger: slog.With("component", "voice"),
	}
}

// CallShelter phones the shelter and returns the reconstructed transcript.
// In demo mode the configured demo number is dialed regardless of phone.
// Daily-quota rejections return a synthetic success so the workflow keeps
// moving.
func (c *Caller) CallShelter(ctx context.Context, phone, shelterName string) (*Result, error) {
	if c.client == nil {
		c.logger.Info("Voice calling not configured, using synthetic transcript", "shelter", shelterName)
		metrics.VoiceCalls.WithLabelValues("disabled").Inc()
		return &Result{OK: true, Transcript: SyntheticTranscript, EndState: "disabled", DemoMode: true}, nil
	}

	target := phone
	if c.cfg.DemoMode {
		target = c.cfg.DemoPhoneNumber
	}

	call, err := c.client.CreateCall(ctx, CreateCallRequest{
		PhoneNumberID:      c.cfg.PhoneNumberID,
		Customer:           Customer{Number: target},
		AssistantID:        c.cfg.AssistantID,
		Name:               fmt.Sprintf("Shelter availability: %s", shelterName),
		MaxDurationSeconds: int(c.cfg.MaxCallDuration.Seconds()),
	})
	if err != nil {
		if fault.IsQuotaExceeded(err) {
			c.logger.Warn("Voice provider daily quota exhausted, using synthetic transcript",
				"shelter", shelterName)
			metrics.VoiceCalls.WithLabelValues("quota").Inc()
			return &Result{OK: true, Transcript: SyntheticTranscript, EndState: "quota", DemoMode: true}, nil
		}
		return nil, err
	}

	c.logger.Info("Outbound call placed",
		"call_id", call.ID, "shelter", shelterName, "demo_mode", c.cfg.DemoMode)

	final, err := c.poll(ctx, call.ID)
	if err != nil {
		return nil, err
	}

	metrics.VoiceCalls.WithLabelValues(final.Status).Inc()

	transcript := renderTranscript(final)
	return &Result{
		OK:         final.Status == "ended",
		Transcript: transcript,
		EndState:   final.Status,
		DemoMode:   c.cfg.DemoMode,
	}, nil
}

// poll checks the call every PollInterval until it is terminal or the
// MaxCallDuration budget is spent, then issues one final GET for the
// definitive artifacts.
func (c *Caller) poll(ctx context.Context, callID string) (*Call, error) {
	deadline := time.NewTimer(c.cfg.MaxCallDuration)
	defer deadline.Stop()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	var (
		lastStatus string
		partial    strings.Builder
		lastSeen   string
	)

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, fault.ErrCancelled
			}
			return nil, fault.NewTimeout("voice", c.cfg.MaxCallDuration)
		case <-deadline.C:
			return nil, fault.NewTimeout("voice", c.cfg.MaxCallDuration)
		case <-ticker.C:
			call, err := c.client.GetCall(ctx, callID)
			if err != nil {
				// Transient poll failures are tolerated; the deadline bounds us.
				c.logger.Warn("Call poll failed", "call_id", callID, "error", err)
				continue
			}
			if call.Status != lastStatus {
				c.logger.Info("Call status changed",
					"call_id", callID, "from", lastStatus, "to", call.Status)
				lastStatus = call.Status
			}
			if call.Transcript != "" && call.Transcript != lastSeen {
				// Harvest intermediate deltas; only used if the final
				// artifact carries no structured transcript.
				partial.Reset()
				partial.WriteString(call.Transcript)
				lastSeen = call.Transcript
			}
			if call.Terminal() {
				final, err := c.client.GetCall(ctx, callID)
				if err != nil {
					c.logger.Warn("Final call fetch failed, using last poll", "call_id", callID, "error", err)
					final = call
				}
				if final.Artifact == nil || len(final.Artifact.Transcript) == 0 {
					final.Transcript = firstNonEmpty(final.Transcript, partial.String())
				}
				return final, nil
			}
		}
	}
}

// renderTranscript prefers the definitive role/message artifact over any
// partial running log, rendered as "ROLE: message" lines.
func renderTranscript(call *Call) string {
	if call.Artifact != nil && len(call.Artifact.Transcript) > 0 {
		lines := make([]string, 0, len(call.Artifact.Transcript))
		for _, m := range call.Artifact.Transcript {
			lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(m.Role), m.Message))
		}
		return strings.Join(lines, "\n")
	}
	return call.Transcript
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
