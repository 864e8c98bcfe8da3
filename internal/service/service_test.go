package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prismtools/prism/internal/logging"
	"github.com/prismtools/prism/internal/retry"
	"github.com/prismtools/prism/internal/transport"
	"github.com/prismtools/prism/pkg/prism"
)

// staticTokens is a TokenSource returning a fixed bearer token.
type staticTokens struct{}

func (staticTokens) Token(ctx context.Context) (string, error) { return "test-token", nil }
func (staticTokens) Reset()                                    {}

// newTestStack spins up a fake API and the transport pointed at it.
// Retries are configured with a near-zero delay to keep failure tests
// fast.
func newTestStack(t *testing.T, handler http.Handler) (prism.HTTPClient, prism.Endpoints) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := transport.New(staticTokens{}, logging.NewNullLogger(),
		transport.WithRetrier(retry.NewExecutor(
			retry.NewHTTPErrorClassifier(),
			retry.NewExponentialBackoff(2, retry.WithInitialDelay(time.Millisecond), retry.WithJitter(0)),
		)),
	)

	endpoints := prism.Endpoints{
		Token: srv.URL + "/token",
		REST:  srv.URL + "/rest",
		Prism: srv.URL + "/prism",
		WQL:   srv.URL + "/wql",
	}
	return client, endpoints
}

func newTestTables(t *testing.T, handler http.Handler) *Tables {
	client, endpoints := newTestStack(t, handler)
	return NewTables(client, endpoints, logging.NewNullLogger())
}

func newTestBuckets(t *testing.T, handler http.Handler) *Buckets {
	client, endpoints := newTestStack(t, handler)
	tables := NewTables(client, endpoints, logging.NewNullLogger())
	return NewBuckets(client, endpoints, tables, logging.NewNullLogger())
}

func newTestStager(t *testing.T, handler http.Handler) *Stager {
	client, endpoints := newTestStack(t, handler)
	return NewStager(client, endpoints, logging.NewNullLogger())
}

func newTestDataChanges(t *testing.T, handler http.Handler) *DataChanges {
	client, endpoints := newTestStack(t, handler)
	return NewDataChanges(client, endpoints, logging.NewNullLogger())
}

func newTestFileContainers(t *testing.T, handler http.Handler) *FileContainers {
	client, endpoints := newTestStack(t, handler)
	stager := NewStager(client, endpoints, logging.NewNullLogger())
	return NewFileContainers(client, endpoints, stager, logging.NewNullLogger())
}

func newTestDataSources(t *testing.T, handler http.Handler) *DataSources {
	client, endpoints := newTestStack(t, handler)
	return NewDataSources(client, endpoints, logging.NewNullLogger())
}

// approveAll is an Approver that always says yes.
type approveAll struct{}

func (approveAll) RequestApproval(ctx context.Context, resource string) (bool, error) {
	return true, nil
}

// denyAll is an Approver that always says no.
type denyAll struct{}

func (denyAll) RequestApproval(ctx context.Context, resource string) (bool, error) {
	return false, nil
}
