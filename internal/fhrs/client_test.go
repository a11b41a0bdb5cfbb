package fhrs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fhrs-archive/internal/components/chrono"
	"fhrs-archive/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func newTestClient(t testing.TB, handler http.HandlerFunc) (*Client, *chrono.FakeImpl, *telemetry.TestingAPI, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	clock := chrono.NewFakeImpl(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	tel := telemetry.NewTestingAPI()
	client := NewClient(Options{
		ApiUrl:         server.URL,
		Clock:          clock,
		ReferencePause: 20 * time.Millisecond,
		AttemptTimeout: 2 * time.Second,
	}, tel)
	return client, clock, tel, server
}

// failing returns a handler that answers with status `code` for the first n requests and
// 200 with body afterwards.
func failing(n int32, code int, body string, calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		call := atomic.AddInt32(calls, 1)
		if call <= n {
			w.WriteHeader(code)
			w.Write([]byte("upstream unavailable"))
			return
		}
		w.Write([]byte(body))
	}
}

func TestFetchDocumentRetriesGatewayTimeout(t *testing.T) {
	var calls int32
	client, clock, _, server := newTestClient(t, failing(4, http.StatusGatewayTimeout, "<ok/>", &calls))

	body, err := client.FetchDocument(context.Background(), server.URL+"/123.xml", RequestOptions{Format: XML})
	require.NoError(t, err)
	require.Equal(t, "<ok/>", body)
	require.EqualValues(t, 5, atomic.LoadInt32(&calls))
	require.Equal(t, []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}, clock.Sleeps())
}

func TestFetchDocumentExhaustsAttempts(t *testing.T) {
	var calls int32
	client, clock, tel, server := newTestClient(t, failing(100, http.StatusGatewayTimeout, "", &calls))

	_, err := client.FetchDocument(context.Background(), server.URL+"/123.xml", RequestOptions{})
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Equal(t, 5, exhausted.Attempts)

	var status *StatusError
	require.True(t, errors.As(err, &status))
	require.Equal(t, http.StatusGatewayTimeout, status.StatusCode)

	require.True(t, IsTerminal(err))
	require.EqualValues(t, 5, atomic.LoadInt32(&calls))
	// no sleep after the final attempt
	require.Len(t, clock.Sleeps(), 4)
	require.True(t, tel.HasReport("broken", report_client_fetch_document))
}

func TestFetchDocumentPermanentFailure(t *testing.T) {
	var calls int32
	client, clock, _, server := newTestClient(t, failing(100, http.StatusNotFound, "", &calls))

	_, err := client.FetchDocument(context.Background(), server.URL+"/123.xml", RequestOptions{})
	var status *StatusError
	require.True(t, errors.As(err, &status))
	require.Equal(t, http.StatusNotFound, status.StatusCode)
	require.Equal(t, "upstream unavailable", status.Body)
	require.Contains(t, err.Error(), "upstream unavailable")
	require.False(t, IsTerminal(err))

	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	require.Empty(t, clock.Sleeps())
}

func TestFetchDocumentRetriesNetworkErrors(t *testing.T) {
	var calls int32
	client, clock, _, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})

	body, err := client.FetchDocument(context.Background(), server.URL+"/123.json", RequestOptions{})
	require.NoError(t, err)
	require.Equal(t, `{"ok":true}`, body)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.Sleeps())
}

func TestFetchDocumentAttemptTimeout(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		w.Write([]byte("late but fine"))
	}))
	t.Cleanup(server.Close)

	clock := chrono.NewFakeImpl(time.Now())
	client := NewClient(Options{
		Clock:          clock,
		AttemptTimeout: 50 * time.Millisecond,
	}, telemetry.NewTestingAPI())

	body, err := client.FetchDocument(context.Background(), server.URL+"/slow.xml", RequestOptions{})
	require.NoError(t, err)
	require.Equal(t, "late but fine", body)
	require.Equal(t, []time.Duration{time.Second}, clock.Sleeps())
}

func TestFetchDocumentHeaders(t *testing.T) {
	var mu sync.Mutex
	var accept, language, version, agent string
	client, _, _, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		accept = r.Header.Get("Accept")
		language = r.Header.Get("Accept-Language")
		version = r.Header.Get("x-api-version")
		agent = r.Header.Get("User-Agent")
	})

	_, err := client.FetchDocument(context.Background(), server.URL+"/FHRS551cy-GB.xml", RequestOptions{
		Language: Welsh,
		Format:   XML,
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "application/xml", accept)
	require.Equal(t, "cy-GB", language)
	require.Equal(t, "2", version)
	require.Equal(t, fingerprintHeaders["user-agent"], agent)
}

func TestFetchReferenceDataset(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	var starts []time.Time
	client, clock, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path+" "+r.Header.Get("Accept"))
		starts = append(starts, time.Now())
		w.Write([]byte("{}"))
	})

	for _, format := range Formats {
		body, err := client.FetchReferenceDataset(context.Background(), Regions, RequestOptions{Format: format})
		require.NoError(t, err)
		require.Equal(t, "{}", body)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{
		"/Regions application/json",
		"/Regions application/xml",
	}, paths)
	require.GreaterOrEqual(t, starts[1].Sub(starts[0]), 15*time.Millisecond)
	// reference datasets are never retried, so nothing goes through the backoff clock
	require.Empty(t, clock.Sleeps())
}

func TestFetchReferenceDatasetStatus(t *testing.T) {
	var calls int32
	client, _, _, _ := newTestClient(t, failing(100, http.StatusGatewayTimeout, "", &calls))

	_, err := client.FetchReferenceDataset(context.Background(), Authorities, RequestOptions{})
	var status *StatusError
	require.True(t, errors.As(err, &status))
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	_, err = client.FetchReferenceDataset(context.Background(), Dataset("nope"), RequestOptions{})
	require.Error(t, err)
}

func TestRewriteDocumentUrl(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{
			in:       "http://ratings.food.gov.uk/OpenDataFiles/FHRS760en-GB.xml",
			expected: "https://ratings.food.gov.uk/api/open-data-files/FHRS760en-GB.xml",
		},
		{
			in:       "https://ratings.food.gov.uk/OpenDataFiles/FHRS551cy-GB.json",
			expected: "https://ratings.food.gov.uk/api/open-data-files/FHRS551cy-GB.json",
		},
		{
			// only an exact prefix counts
			in:       "http://example.com/http://ratings.food.gov.uk/OpenDataFiles/x.xml",
			expected: "http://example.com/http://ratings.food.gov.uk/OpenDataFiles/x.xml",
		},
		{
			in:       "http://ratings.food.gov.uk/opendatafiles/x.xml",
			expected: "http://ratings.food.gov.uk/opendatafiles/x.xml",
		},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, RewriteDocumentUrl(test.in))
	}
}
