package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hookURL = "https://hooks.example.com/shelfprobe"

func newMockedNotifier(t *testing.T, secret string) *Notifier {
	t.Helper()
	n := NewNotifier(secret, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.delays = []time.Duration{0, time.Millisecond, time.Millisecond}
	httpmock.ActivateNonDefault(n.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return n
}

func TestDeliverSignsBody(t *testing.T) {
	n := newMockedNotifier(t, "s3cret")

	var gotSig string
	var got Event
	httpmock.RegisterResponder(http.MethodPost, hookURL, func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		gotSig = req.Header.Get(SignatureHeader)
		assert.Equal(t, "sha256="+Sign("s3cret", body), gotSig)
		if err := json.Unmarshal(body, &got); err != nil {
			return nil, err
		}
		return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
	})

	ev := NewEvent(EventProductExtracted, "run-1", "https://www.vprok.ru/product/x", map[string]string{"price": "999"})
	require.NoError(t, n.Deliver(context.Background(), hookURL, ev))

	assert.NotEmpty(t, gotSig)
	assert.Equal(t, EventProductExtracted, got.Type)
	assert.Equal(t, "run-1", got.RunID)
}

func TestDeliverUnsignedWithoutSecret(t *testing.T) {
	n := newMockedNotifier(t, "")
	httpmock.RegisterResponder(http.MethodPost, hookURL, func(req *http.Request) (*http.Response, error) {
		assert.Empty(t, req.Header.Get(SignatureHeader))
		return httpmock.NewStringResponse(http.StatusOK, ""), nil
	})
	require.NoError(t, n.Deliver(context.Background(), hookURL, NewEvent(EventCatalogFailed, "r", "u", nil)))
}

func TestDeliverRetryRecovers(t *testing.T) {
	n := newMockedNotifier(t, "")
	httpmock.RegisterResponder(http.MethodPost, hookURL,
		httpmock.NewStringResponder(http.StatusBadGateway, "").
			Then(httpmock.NewStringResponder(http.StatusOK, "")))

	err := n.DeliverRetry(context.Background(), hookURL, NewEvent(EventCatalogExtracted, "r", "u", nil))
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestDeliverRetryExhausted(t *testing.T) {
	n := newMockedNotifier(t, "")
	httpmock.RegisterResponder(http.MethodPost, hookURL, httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	err := n.DeliverRetry(context.Background(), hookURL, NewEvent(EventCatalogExtracted, "r", "u", nil))
	assert.ErrorContains(t, err, "status 500")
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
}
