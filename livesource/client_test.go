package livesource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittylit/bookfinder/core"
)

// fakeGate is a QuotaGate spy with a configurable allowance.
type fakeGate struct {
	allowed    bool
	increments atomic.Int64
}

func (g *fakeGate) CanCall(context.Context) bool { return g.allowed }

func (g *fakeGate) Increment(context.Context) int {
	return int(g.increments.Add(1))
}

const volumesPayload = `{
	"items": [
		{
			"volumeInfo": {
				"title": "The Gruffalo",
				"authors": ["Julia Donaldson", "Axel Scheffler"],
				"publishedDate": "1999-03-23",
				"description": "A mouse took a stroll.",
				"industryIdentifiers": [
					{"type": "ISBN_10", "identifier": "0333710932"},
					{"type": "ISBN_13", "identifier": "9780333710937"}
				],
				"imageLinks": {"thumbnail": "http://img.example/gruffalo.jpg"}
			}
		},
		{
			"volumeInfo": {
				"title": "Old Tale",
				"publishedDate": "1952",
				"industryIdentifiers": [
					{"type": "OTHER", "identifier": "X-1"}
				]
			}
		},
		{
			"volumeInfo": {}
		}
	]
}`

func TestNewClient_NilGate(t *testing.T) {
	_, err := NewClient(nil)
	assert.Equal(t, ErrQuotaGateRequired, err)
}

func TestClient_Fetch(t *testing.T) {
	var gotQuery, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotLang = r.URL.Query().Get("langRestrict")
		w.Write([]byte(volumesPayload))
	}))
	defer srv.Close()

	gate := &fakeGate{allowed: true}
	client, err := NewClient(gate, WithBaseURL(srv.URL))
	require.NoError(t, err)

	books, err := client.Fetch(context.Background(), core.Query{Genre: "fantasy", Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, "subject:fantasy", gotQuery)
	assert.Equal(t, "en", gotLang)
	assert.Equal(t, int64(1), gate.increments.Load())

	require.Len(t, books, 3)
	assert.Equal(t, "The Gruffalo", books[0].Title)
	assert.Equal(t, "Julia Donaldson, Axel Scheffler", books[0].Author)
	assert.Equal(t, "1999", books[0].PublicationYear)
	assert.Equal(t, "9780333710937", books[0].Isbn, "ISBN-13 preferred over ISBN-10")
	assert.Equal(t, core.SourceGoogleBooks, books[0].Source)

	assert.Equal(t, "X-1", books[1].Isbn, "falls back to first identifier")

	assert.Equal(t, "Unknown Title", books[2].Title)
	assert.Equal(t, "Unknown Author", books[2].Author)
}

func TestClient_Fetch_DefaultQueryTerm(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := NewClient(&fakeGate{allowed: true}, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), core.Query{})
	require.NoError(t, err)
	assert.Equal(t, "children", gotQuery)
}

func TestClient_Fetch_ExactYearFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(volumesPayload))
	}))
	defer srv.Close()

	client, err := NewClient(&fakeGate{allowed: true}, WithBaseURL(srv.URL))
	require.NoError(t, err)

	books, err := client.Fetch(context.Background(), core.Query{PublicationYear: "1999"})
	require.NoError(t, err)

	// "Old Tale" (1952) is dropped; the undated volume passes through.
	require.Len(t, books, 2)
	assert.Equal(t, "The Gruffalo", books[0].Title)
	assert.Equal(t, "Unknown Title", books[1].Title)
}

func TestClient_Fetch_QuotaExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("network must not be touched when quota is spent")
	}))
	defer srv.Close()

	gate := &fakeGate{allowed: false}
	client, err := NewClient(gate, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), core.Query{Genre: "fantasy"})
	assert.ErrorIs(t, err, ErrQuotaExhausted)
	assert.Equal(t, int64(0), gate.increments.Load())
}

func TestClient_Fetch_RetriesAndCountsEveryAttempt(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	gate := &fakeGate{allowed: true}
	client, err := NewClient(gate,
		WithBaseURL(srv.URL),
		WithMaxAttempts(3),
		WithBaseDelay(time.Millisecond),
	)
	require.NoError(t, err)

	books, err := client.Fetch(context.Background(), core.Query{})
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, int64(3), gate.increments.Load(), "each attempt counts against the quota")
}

func TestClient_Fetch_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(&fakeGate{allowed: true},
		WithBaseURL(srv.URL),
		WithMaxAttempts(2),
		WithBaseDelay(time.Millisecond),
	)
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), core.Query{})
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestRetryWithBackoff_InvalidAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond)
	assert.Equal(t, ErrInvalidMaxAttempts, err)
}
