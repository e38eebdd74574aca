package roof

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher pushes completed measurement results to MQTT for downstream
// estimating consumers. Full results go to a per-job topic; a retained
// summary of the latest runs goes to a combined topic.
type Publisher struct {
	client    mqtt.Client
	prefix    string
	qos       byte
	summaries map[string]ResultSummary
	mu        sync.RWMutex
}

// NewPublisher creates a result publisher. If client is nil, publishing is
// disabled (for testing and one-shot CLI runs).
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = os.Getenv("MQTT_PUBLISH_PREFIX")
	}
	if prefix == "" {
		prefix = "roofmetric"
	}
	return &Publisher{
		client:    client,
		prefix:    prefix,
		qos:       1, // results must not be silently dropped
		summaries: make(map[string]ResultSummary),
	}
}

// PublishResult publishes a full result to roofmetric/results/{jobID} and
// refreshes the retained combined summary topic.
func (p *Publisher) PublishResult(r *MeasurementResult) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	p.mu.Lock()
	p.summaries[r.JobID] = ResultSummary{
		JobID:                 r.JobID,
		TotalAdjustedAreaSqft: r.TotalAdjustedAreaSqft,
		ConfidenceRating:      r.ConfidenceRating,
		ManualReviewRequired:  r.ManualReviewRequired,
		RiskLevel:             r.RiskLevel,
		MeasuredAt:            r.MeasuredAt,
	}
	p.mu.Unlock()

	if err := p.publishFull(r); err != nil {
		log.Printf("Error publishing result for %s: %v", r.JobID, err)
		return err
	}
	if err := p.publishSummaries(); err != nil {
		log.Printf("Error publishing result summaries: %v", err)
		return err
	}
	return nil
}

func (p *Publisher) publishFull(r *MeasurementResult) error {
	topic := fmt.Sprintf("%s/results/%s", p.prefix, r.JobID)
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	// Full results are not retained; late joiners use the summary topic.
	token := p.client.Publish(topic, p.qos, false, payload)
	token.Wait()
	return token.Error()
}

func (p *Publisher) publishSummaries() error {
	topic := fmt.Sprintf("%s/results", p.prefix)

	p.mu.RLock()
	all := make([]ResultSummary, 0, len(p.summaries))
	for _, s := range p.summaries {
		all = append(all, s)
	}
	p.mu.RUnlock()

	payload, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("marshaling summaries: %w", err)
	}
	token := p.client.Publish(topic, p.qos, true, payload)
	token.Wait()
	return token.Error()
}
