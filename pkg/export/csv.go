package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/kontext-run/kontext-core/pkg/store"
)

// CSVBundle holds one rendered CSV file per section, keyed by section
// name (actions, transactions, tasks, anomalies).
type CSVBundle map[string][]byte

// CSV renders one CSV file per section, each row prefixed with a `section`
// column as specified.
func CSV(s *store.ActionStore) (CSVBundle, error) {
	bundle := make(CSVBundle, 4)

	actionsCSV, err := actionsToCSV(s.AllActions())
	if err != nil {
		return nil, fmt.Errorf("export: actions csv: %w", err)
	}
	bundle["actions"] = actionsCSV

	txCSV, err := transactionsToCSV(s.AllTransactions())
	if err != nil {
		return nil, fmt.Errorf("export: transactions csv: %w", err)
	}
	bundle["transactions"] = txCSV

	tasksCSV, err := tasksToCSV(s.AllTasks())
	if err != nil {
		return nil, fmt.Errorf("export: tasks csv: %w", err)
	}
	bundle["tasks"] = tasksCSV

	anomaliesCSV, err := anomaliesToCSV(s.AllAnomalies())
	if err != nil {
		return nil, fmt.Errorf("export: anomalies csv: %w", err)
	}
	bundle["anomalies"] = anomaliesCSV

	return bundle, nil
}

func actionsToCSV(actions []*store.Action) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"section", "id", "agentId", "type", "timestamp", "sequence", "digest"}); err != nil {
		return nil, err
	}
	for _, a := range actions {
		if err := w.Write([]string{
			"actions", a.ActionID, a.AgentID, string(a.Type),
			a.Timestamp.Format(timeFormat), fmt.Sprintf("%d", a.Sequence), a.Digest,
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func transactionsToCSV(transactions []*store.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"section", "id", "agentId", "chain", "amount", "token", "from", "to", "timestamp"}); err != nil {
		return nil, err
	}
	for _, t := range transactions {
		if err := w.Write([]string{
			"transactions", t.ActionID, t.AgentID, t.Chain, t.Amount, t.Token, t.From, t.To,
			t.Timestamp.Format(timeFormat),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func tasksToCSV(tasks []*store.Task) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"section", "id", "agentId", "status", "createdAt", "updatedAt"}); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if err := w.Write([]string{
			"tasks", t.ID, t.AgentID, string(t.Status),
			t.CreatedAt.Format(timeFormat), t.UpdatedAt.Format(timeFormat),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func anomaliesToCSV(anomalies []*store.AnomalyEvent) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"section", "id", "agentId", "type", "severity", "actionId", "detectedAt"}); err != nil {
		return nil, err
	}
	for _, e := range anomalies {
		if err := w.Write([]string{
			"anomalies", e.EventID, e.AgentID, e.Type, string(e.Severity), e.ActionID,
			e.DetectedAt.Format(timeFormat),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"
