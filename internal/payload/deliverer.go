package payload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taxsync/internal/logger"
	"taxsync/internal/models"
	"taxsync/pkg/signature"
	"taxsync/pkg/utils"
)

// Delivery errors. Failures wrap models.ErrDeliveryFailure so they classify
// as delivery_failure.
var (
	ErrNilRecord        = errors.New("record is nil")
	ErrNoCallbackURL    = errors.New("callback url is not configured")
	ErrUnexpectedStatus = errors.New("unexpected callback status")
)

// Deliverer posts each TaxRecord to the callback as its own request.
type Deliverer struct {
	client  Client
	headers *utils.HTTPHelper
	logger  *logger.Logger
	url     string
	secret  string
}

// NewDeliverer creates a deliverer for url whose requests time out after timeout.
func NewDeliverer(url string, timeout time.Duration, log *logger.Logger) *Deliverer {
	return NewDelivererWithClient(url, NewRestyClient(timeout), log)
}

// NewDelivererWithClient creates a deliverer with a custom client (useful for testing).
func NewDelivererWithClient(url string, client Client, log *logger.Logger) *Deliverer {
	if log == nil {
		log = logger.Discard()
	}

	return &Deliverer{
		client:  client,
		headers: utils.NewHTTPHelper(),
		logger:  log,
		url:     url,
	}
}

// SetSigningSecret enables the signature header on every request.
func (d *Deliverer) SetSigningSecret(secret string) {
	d.secret = secret
}

// URL returns the callback endpoint.
func (d *Deliverer) URL() string {
	return d.url
}

// Deliver posts rec once. A 2xx reply is delivered; 4xx, 5xx and transport
// errors are failed; anything else is reported as unknown. There are no
// retries.
func (d *Deliverer) Deliver(ctx context.Context, rec *models.TaxRecord) (models.DeliveryStatus, error) {
	if d.url == "" {
		return models.DeliverySkipped, ErrNoCallbackURL
	}

	if rec == nil {
		return models.DeliveryFailed, fmt.Errorf("%w: %w", models.ErrDeliveryFailure, ErrNilRecord)
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return models.DeliveryFailed, fmt.Errorf("%w: failed to marshal record: %w", models.ErrDeliveryFailure, err)
	}

	extra := map[string]string{}
	if d.secret != "" {
		sig, err := signature.Sign(d.secret, body)
		if err != nil {
			return models.DeliveryFailed, fmt.Errorf("%w: %w", models.ErrDeliveryFailure, err)
		}

		extra[signature.Header] = sig
	}

	d.logger.Debug(fmt.Sprintf("📤 Posting %s record (%d bytes) to %s", rec.Provider, len(body), d.url))

	resp, err := d.client.Post(ctx, d.url, d.headers.BuildHeaders(extra), body)
	if err != nil {
		d.logger.Error(fmt.Sprintf("❌ Callback for %s failed: %v", describe(rec), err))

		return models.DeliveryFailed, fmt.Errorf("%w: %w", models.ErrDeliveryFailure, err)
	}

	return d.classify(rec, resp)
}

func (d *Deliverer) classify(rec *models.TaxRecord, resp *Response) (models.DeliveryStatus, error) {
	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		d.logger.Info(fmt.Sprintf("✅ Delivered %s (HTTP %d)", describe(rec), code))

		return models.DeliveryDelivered, nil
	case code >= 400:
		d.logger.Error(fmt.Sprintf("❌ Callback rejected %s: HTTP %d: %s", describe(rec), code, resp.Body))

		return models.DeliveryFailed, fmt.Errorf("%w: HTTP %d", models.ErrDeliveryFailure, code)
	default:
		d.logger.Warn(fmt.Sprintf("⚠️ Callback for %s answered HTTP %d; delivery unconfirmed", describe(rec), code))

		return models.DeliveryUnknown, fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, code)
	}
}

func describe(rec *models.TaxRecord) string {
	key := rec.ParcelNumber
	if key == "" {
		key = rec.Address
	}

	if rec.PropertyID != nil && *rec.PropertyID != "" {
		key = *rec.PropertyID
	}

	return fmt.Sprintf("%s/%s", rec.Provider, key)
}
