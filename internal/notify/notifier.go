// Package notify announces finished build runs to downstream consumers.
package notify

import (
	"context"
	"fmt"

	"github.com/JakeFAU/annotation-tables/internal/orchestrator"
)

// Publisher sends one message. Both the Pub/Sub and in-memory publishers satisfy it.
type Publisher interface {
	Publish(ctx context.Context, attrs map[string]string, payload any) (string, error)
}

// Message is the JSON body of a build notification.
type Message struct {
	RunID     string                  `json:"run_id"`
	Outcome   orchestrator.Outcome    `json:"outcome"`
	OutputDir string                  `json:"output_dir"`
	RefGenome string                  `json:"ref_genome"`
	Artifacts map[string]string       `json:"artifacts"`
	Failed    *orchestrator.JobResult `json:"failed,omitempty"`
}

// Notifier publishes a Message for every run. It satisfies orchestrator.ReportSink.
type Notifier struct {
	pub Publisher
}

var _ orchestrator.ReportSink = (*Notifier)(nil)

// New creates a Notifier.
func New(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

// Consume publishes the run summary.
func (n *Notifier) Consume(ctx context.Context, report orchestrator.Report) error {
	if n == nil || n.pub == nil {
		return fmt.Errorf("notifier is not configured")
	}
	msg := NewMessage(report)
	attrs := map[string]string{
		"run_id":     msg.RunID,
		"outcome":    string(msg.Outcome),
		"ref_genome": msg.RefGenome,
	}
	if _, err := n.pub.Publish(ctx, attrs, msg); err != nil {
		return fmt.Errorf("publish run %s: %w", report.RunID, err)
	}
	return nil
}

// NewMessage summarises a report: committed artifacts by job, and the failure if any.
func NewMessage(report orchestrator.Report) Message {
	msg := Message{
		RunID:     report.RunID,
		Outcome:   report.Outcome(),
		OutputDir: report.OutputDir,
		RefGenome: report.RefGenome,
		Artifacts: make(map[string]string, len(report.Jobs)),
	}
	for _, j := range report.Jobs {
		if j.Outcome == orchestrator.OutcomeSucceeded {
			msg.Artifacts[j.ID] = j.OutputPath
		}
	}
	if failed, ok := report.Failed(); ok {
		msg.Failed = &failed
	}
	return msg
}
