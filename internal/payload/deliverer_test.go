package payload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxsync/internal/logger"
	"taxsync/internal/models"
	"taxsync/pkg/signature"
)

var errConnectionRefused = errors.New("connection refused")

// MockClient implements the Client interface for testing.
type MockClient struct {
	PostFunc func(ctx context.Context, url string, headers http.Header, body []byte) (*Response, error)
	Calls    int
}

func (m *MockClient) Post(ctx context.Context, url string, headers http.Header, body []byte) (*Response, error) {
	m.Calls++

	if m.PostFunc != nil {
		return m.PostFunc(ctx, url, headers, body)
	}

	return &Response{StatusCode: http.StatusOK}, nil
}

func sampleRecord() *models.TaxRecord {
	id := "dana-125"
	year := 2025
	annual := 10246.90

	return &models.TaxRecord{
		Provider:     models.ProviderSantaClara,
		PropertyID:   &id,
		ParcelNumber: "274-15-034",
		Address:      "125 DANA AV SAN JOSE",
		TaxYear:      &year,
		AnnualTax:    &annual,
		Success:      true,
		Installments: []models.TaxInstallment{
			{Number: 1, Amount: 5123.45, DueDate: "12/10/2025", Status: models.StatusPaid},
			{Number: 2, Amount: 5123.45, DueDate: "04/10/2026", Status: models.StatusUnpaid},
		},
	}
}

func TestDeliverer_Classification(t *testing.T) {
	tests := []struct {
		name       string
		response   *Response
		err        error
		wantStatus models.DeliveryStatus
		wantErr    error
	}{
		{"ok", &Response{StatusCode: http.StatusOK}, nil, models.DeliveryDelivered, nil},
		{"accepted", &Response{StatusCode: http.StatusAccepted}, nil, models.DeliveryDelivered, nil},
		{"bad request", &Response{StatusCode: http.StatusBadRequest, Body: "nope"}, nil, models.DeliveryFailed, models.ErrDeliveryFailure},
		{"server error", &Response{StatusCode: http.StatusBadGateway}, nil, models.DeliveryFailed, models.ErrDeliveryFailure},
		{"transport error", nil, errConnectionRefused, models.DeliveryFailed, models.ErrDeliveryFailure},
		{"redirect", &Response{StatusCode: http.StatusFound}, nil, models.DeliveryUnknown, ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockClient{
				PostFunc: func(context.Context, string, http.Header, []byte) (*Response, error) {
					return tt.response, tt.err
				},
			}

			d := NewDelivererWithClient("https://example.test/hook", client, logger.Discard())

			status, err := d.Deliver(context.Background(), sampleRecord())

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, 1, client.Calls, "deliveries are never retried")

			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDeliverer_NoURL(t *testing.T) {
	client := &MockClient{}
	d := NewDelivererWithClient("", client, nil)

	status, err := d.Deliver(context.Background(), sampleRecord())

	require.ErrorIs(t, err, ErrNoCallbackURL)
	assert.Equal(t, models.DeliverySkipped, status)
	assert.Zero(t, client.Calls)
}

func TestDeliverer_NilRecord(t *testing.T) {
	d := NewDelivererWithClient("https://example.test/hook", &MockClient{}, nil)

	status, err := d.Deliver(context.Background(), nil)

	require.ErrorIs(t, err, ErrNilRecord)
	require.ErrorIs(t, err, models.ErrDeliveryFailure)
	assert.Equal(t, models.DeliveryFailed, status)
}

func TestDeliverer_PostsCanonicalPayload(t *testing.T) {
	var (
		gotBody    []byte
		gotHeaders http.Header
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDeliverer(server.URL, 5*time.Second, logger.Discard())
	d.SetSigningSecret("s3cret")

	status, err := d.Deliver(context.Background(), sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, status)

	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "taxsync/1.0", gotHeaders.Get("User-Agent"))
	require.NoError(t, signature.Verify("s3cret", gotBody, gotHeaders.Get(signature.Header)))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))

	for _, key := range []string{
		"provider", "property_id", "parcel_number", "address", "owner", "tax_year", "assessed_value",
		"annual_tax", "quarterly_amount", "installments", "success", "error", "raw_data",
	} {
		assert.Contains(t, payload, key)
	}

	assert.Equal(t, "santa_clara_county", payload["provider"])
	assert.Len(t, payload["installments"], 2)
}

func TestDeliverer_Unsigned(t *testing.T) {
	var header string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get(signature.Header)
	}))
	defer server.Close()

	status, err := NewDeliverer(server.URL, 5*time.Second, nil).Deliver(context.Background(), sampleRecord())

	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, status)
	assert.Empty(t, header)
}

func TestDeliverer_ServerErrorAndRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	status, err := NewDeliverer(server.URL+"/broken", 5*time.Second, nil).Deliver(context.Background(), sampleRecord())
	require.ErrorIs(t, err, models.ErrDeliveryFailure)
	assert.Equal(t, models.DeliveryFailed, status)

	status, err = NewDeliverer(server.URL+"/moved", 5*time.Second, nil).Deliver(context.Background(), sampleRecord())
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, models.DeliveryUnknown, status)
}

func TestDeliverer_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	status, err := NewDeliverer(url, 2*time.Second, nil).Deliver(context.Background(), sampleRecord())

	require.ErrorIs(t, err, models.ErrDeliveryFailure)
	assert.Equal(t, models.DeliveryFailed, status)
}
