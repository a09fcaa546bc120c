package publish

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/quantfolio/portfolio-analyzer/internal/analyzer"
	"github.com/quantfolio/portfolio-analyzer/pkg/metrics"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

// RunSummary is the wire payload published after each analysis run. It
// carries the headline numbers only; consumers wanting full detail query
// the API with the run ID.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	CompletedAt time.Time `json:"completed_at"`

	PositionCount int     `json:"position_count"`
	InitialValue  float64 `json:"initial_value"`
	ExpectedPNL   float64 `json:"expected_pnl"`

	VaR95  float64 `json:"var_95"`
	VaR99  float64 `json:"var_99"`
	CVaR95 float64 `json:"cvar_95"`

	DeltaDollars float64 `json:"delta_dollars"`
	ThetaDollars float64 `json:"theta_dollars"`

	RiskLevel string `json:"risk_level"`
	RiskScore int    `json:"risk_score"`
}

// messageWriter is the kafka.Writer surface the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits run summaries to a Kafka topic.
type Publisher struct {
	writer   messageWriter
	topic    string
	recorder *metrics.Recorder
	log      *logger.Logger
}

// NewPublisher creates a publisher for the given brokers and topic.
// recorder may be nil.
func NewPublisher(brokers []string, topic string, recorder *metrics.Recorder) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
	return &Publisher{
		writer:   writer,
		topic:    topic,
		recorder: recorder,
		log:      logger.GetLogger("publish.kafka"),
	}
}

// PublishRun sends the run's summary, keyed by run ID so replays of the
// same run land in one partition.
func (p *Publisher) PublishRun(ctx context.Context, run *analyzer.Run) error {
	summary := SummaryFromRun(run)

	payload, err := json.Marshal(summary)
	if err != nil {
		return errors.Wrap(err, "marshaling run summary")
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(run.ID),
		Value: payload,
	})
	if err != nil {
		p.recordPublish("error")
		return errors.Wrapf(err, "publishing run %s to %s", run.ID, p.topic)
	}

	p.recordPublish("success")
	p.log.Infof("Published run %s to %s", run.ID, p.topic)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) recordPublish(status string) {
	if p.recorder != nil {
		p.recorder.RecordPublish(p.topic, status)
	}
}

// SummaryFromRun flattens a run into its wire summary.
func SummaryFromRun(run *analyzer.Run) RunSummary {
	summary := RunSummary{
		RunID:         run.ID,
		CompletedAt:   run.CompletedAt,
		PositionCount: len(run.Positions),
	}
	if run.Simulation != nil {
		summary.InitialValue = run.Simulation.InitialValue
		summary.ExpectedPNL = run.Simulation.ExpectedPNL()
		summary.VaR95 = run.Simulation.Statistics.VaR95
		summary.VaR99 = run.Simulation.Statistics.VaR99
		summary.CVaR95 = run.Simulation.Statistics.CVaR95
	}
	if run.Greeks != nil {
		summary.DeltaDollars = run.Greeks.Totals.DeltaDollars
		summary.ThetaDollars = run.Greeks.Totals.ThetaDollars
	}
	if run.Advice != nil {
		summary.RiskLevel = string(run.Advice.RiskAssessment.OverallLevel)
		summary.RiskScore = run.Advice.RiskAssessment.RiskScore
	}
	return summary
}
