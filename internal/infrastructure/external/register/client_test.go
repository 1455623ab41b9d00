package register

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/pkg/retry"
)

func TestCheckInDTO_Parsing(t *testing.T) {
	jsonData := `{
    "batch": "2026-jan-london",
    "total": 2,
    "check_ins": [
        {"login": "alice-dev", "timestamp": "2026-03-02T09:55:00Z", "code": "", "register_url": "https://register.internal/r/1"},
        {"login": "bob", "timestamp": "2026-03-02T10:20:00Z", "code": "L", "register_url": "https://register.internal/r/2"}
    ]
}`

	var response feedResponse
	err := json.Unmarshal([]byte(jsonData), &response)
	assert.NoError(t, err)

	assert.Equal(t, "2026-jan-london", response.Batch)
	require.Len(t, response.CheckIns, 2)
	assert.Equal(t, "alice-dev", response.CheckIns[0].Login)
	assert.Equal(t, "L", response.CheckIns[1].Code)
	assert.Equal(t, 9, response.CheckIns[0].Timestamp.UTC().Hour())
}

func testClient(serverURL string) *Client {
	config := DefaultClientConfig(serverURL, "feed-key")
	config.Retrier = retry.New(
		retry.WithMaxAttempts(3),
		retry.WithInitialDelay(time.Millisecond),
		retry.WithMaxDelay(5*time.Millisecond),
	)
	return NewClient(config)
}

func TestClient_ListCheckIns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer feed-key", r.Header.Get("Authorization"))
		assert.Equal(t, "2026-jan-london", r.URL.Query().Get("batch"))
		fmt.Fprint(w, `{"batch": "2026-jan-london", "total": 1, "check_ins": [{"login": "alice-dev", "timestamp": "2026-03-02T09:55:00Z"}]}`)
	}))
	defer server.Close()

	checkIns, err := testClient(server.URL).ListCheckIns(context.Background(), "2026-jan-london", time.Time{})

	require.NoError(t, err)
	require.Len(t, checkIns, 1)
	assert.Equal(t, "alice-dev", checkIns[0].Login)
}

func TestClient_RetriesServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"check_ins": []}`)
	}))
	defer server.Close()

	_, err := testClient(server.URL).ListCheckIns(context.Background(), "2026-jan-london", time.Time{})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestClient_PermanentOnBadRequest(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := testClient(server.URL).ListCheckIns(context.Background(), "nope", time.Time{})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
