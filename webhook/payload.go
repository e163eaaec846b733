package webhook

import (
	"encoding/json"
	"time"

	"github.com/barterlabs/loopengine/graph"
	"github.com/barterlabs/loopengine/registry"
)

// TenantRef identifies the tenant in a webhook payload.
type TenantRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type nftJSON struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	Collection     string   `json:"collection,omitempty"`
	EstimatedValue *float64 `json:"estimatedValue,omitempty"`
}

type stepJSON struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	Nfts []nftJSON `json:"nfts"`
}

type metricsJSON struct {
	Efficiency          float64 `json:"efficiency"`
	Fairness            float64 `json:"fairness"`
	Demand              float64 `json:"demand"`
	CollectionDiversity float64 `json:"collectionDiversity"`
}

type loopJSON struct {
	ID           string      `json:"id"`
	Steps        []stepJSON  `json:"steps"`
	Participants int         `json:"participants"`
	QualityScore float64     `json:"qualityScore"`
	Metrics      metricsJSON `json:"metrics"`
}

type eventData struct {
	Loop    loopJSON `json:"loop"`
	Trigger string   `json:"trigger,omitempty"`
}

// envelope is the bit-exact wire shape from spec.md §6. Signature is left
// empty (and therefore omitted) when marshalled for signing, then populated
// for the copy actually handed to the Transport.
type envelope struct {
	Event     string    `json:"event"`
	Timestamp string    `json:"timestamp"`
	Tenant    TenantRef `json:"tenant"`
	Data      eventData `json:"data"`
	Signature string    `json:"signature,omitempty"`
}

func toLoopJSON(loop graph.TradeLoop) loopJSON {
	steps := make([]stepJSON, len(loop.Steps))
	for i, st := range loop.Steps {
		nfts := make([]nftJSON, len(st.Nfts))
		for j, n := range st.Nfts {
			v := n.EstimatedValue
			nfts[j] = nftJSON{ID: n.ID, Name: n.Name, Collection: n.CollectionID, EstimatedValue: &v}
		}
		steps[i] = stepJSON{From: st.From, To: st.To, Nfts: nfts}
	}
	return loopJSON{
		ID:           loop.ID,
		Steps:        steps,
		Participants: loop.Participants,
		QualityScore: loop.QualityScore,
		Metrics: metricsJSON{
			Efficiency:          loop.Efficiency,
			Fairness:            loop.Fairness,
			Demand:              loop.Demand,
			CollectionDiversity: loop.CollectionDiversity,
		},
	}
}

func buildEnvelope(tenant TenantRef, ev registry.Event, now time.Time) envelope {
	return envelope{
		Event:     string(ev.Kind),
		Timestamp: now.UTC().Format(time.RFC3339),
		Tenant:    tenant,
		Data: eventData{
			Loop:    toLoopJSON(ev.Loop),
			Trigger: ev.Trigger,
		},
	}
}

func (e envelope) canonicalJSON() ([]byte, error) {
	e.Signature = ""
	return json.Marshal(e)
}

func (e envelope) withSignature(sig string) ([]byte, error) {
	e.Signature = sig
	return json.Marshal(e)
}
