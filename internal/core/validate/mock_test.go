package validate

import (
	"context"
	"errors"

	"github.com/expertatlas/atlas/internal/core/model"
)

// MockGeocoder answers from a canned query table. Unknown queries return
// an empty result set; Err trumps everything.
type MockGeocoder struct {
	Results map[string][]model.GeocodeResult
	Err     error
	Queries []string
}

func (m *MockGeocoder) Search(ctx context.Context, query string) ([]model.GeocodeResult, error) {
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results[query], nil
}

type MockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

var errUnavailable = errors.New("service unavailable")
