// Package moysklad implements the МойСклад JSON API 1.2 collaborators
// consumed by the reconciliation engine: the payment source, the invoice
// source, the attachment attribute lookup and the update sender.
package moysklad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"payrecon/internal/logger"
	"payrecon/internal/reconciliation"
)

const defaultPageSize = 100

// Config holds МойСклад client configuration.
type Config struct {
	// BaseURL is the API root, e.g. https://api.moysklad.ru/api/remap/1.2.
	BaseURL string

	// Token is the bearer access token.
	Token string

	// Timeout is the per-request timeout. Default: 30 seconds.
	Timeout time.Duration

	// PageSize is the collection page size. Default: 100.
	PageSize int
}

// Client is an МойСклад JSON API client. It implements the engine's
// InvoiceSource and Sender contracts; PaymentSource binds it to the
// attachment attribute so already-attached rows are filtered out.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates an API client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	const op = "NewClient"

	if cfg.Token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingToken)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s: base URL is required", op)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.WithComponent("moysklad"),
	}, nil
}

// PaymentSource returns the engine's payment source: incoming payments
// that are not yet flagged by the given attachment attribute. Payments
// attached in a previous run never re-enter matching.
func (c *Client) PaymentSource(attribute reconciliation.AttributeDescriptor) reconciliation.PaymentSource {
	return &paymentSource{client: c, attribute: attribute}
}

type paymentSource struct {
	client    *Client
	attribute reconciliation.AttributeDescriptor
}

// FetchPayments implements reconciliation.PaymentSource.
func (s *paymentSource) FetchPayments(ctx context.Context) ([]reconciliation.Payment, error) {
	return s.client.fetchPayments(ctx, s.attribute.Meta.Href)
}

// fetchPayments reads incoming payments, page by page, converts them to
// the matching core's model and drops rows already attached by the
// attribute with the given href. Rows that fail conversion abort the
// fetch: a partially read batch must not reach the engine.
func (c *Client) fetchPayments(ctx context.Context, attachedHref string) ([]reconciliation.Payment, error) {
	const op = "FetchPayments"

	c.log.Info().Msg("Fetching incoming payments")

	attached := 0
	var payments []reconciliation.Payment
	for offset := 0; ; offset += c.pageSize {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(c.pageSize))
		query.Set("offset", strconv.Itoa(offset))

		var page paymentList
		if err := c.get(ctx, op, "/entity/paymentin", query, &page); err != nil {
			return nil, err
		}

		for _, row := range page.Rows {
			if row.attachedBy(attachedHref) {
				attached++
				continue
			}
			payment, err := row.toDomain()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			payments = append(payments, payment)
		}

		if len(page.Rows) < c.pageSize {
			break
		}
	}

	c.log.Info().
		Int("payments", len(payments)).
		Int("already_attached", attached).
		Msg("Incoming payments fetched")
	return payments, nil
}

// FetchUnpaidCandidates reads all sales invoices with organizationAccount
// and agent expanded. Paid-status filtering is the core's job, so every row
// is returned.
func (c *Client) FetchUnpaidCandidates(ctx context.Context) ([]reconciliation.Invoice, error) {
	const op = "FetchUnpaidCandidates"

	c.log.Info().Msg("Fetching sales invoices")

	var invoices []reconciliation.Invoice
	for offset := 0; ; offset += c.pageSize {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(c.pageSize))
		query.Set("offset", strconv.Itoa(offset))
		query.Set("expand", "organizationAccount,agent")

		var page invoiceList
		if err := c.get(ctx, op, "/entity/invoiceout", query, &page); err != nil {
			return nil, err
		}

		for _, row := range page.Rows {
			invoice, err := row.toDomain()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			invoices = append(invoices, invoice)
		}

		if len(page.Rows) < c.pageSize {
			break
		}
	}

	c.log.Info().Int("invoices", len(invoices)).Msg("Sales invoices fetched")
	return invoices, nil
}

// FetchAttributeDescriptor looks up the tenant's paymentin attribute with
// the given name. The engine uses it as the attachment-flag template.
func (c *Client) FetchAttributeDescriptor(ctx context.Context, name string) (reconciliation.AttributeDescriptor, error) {
	const op = "FetchAttributeDescriptor"

	var attributes attributeList
	if err := c.get(ctx, op, "/entity/paymentin/metadata/attributes", nil, &attributes); err != nil {
		return reconciliation.AttributeDescriptor{}, err
	}

	for _, row := range attributes.Rows {
		if row.Name == name {
			c.log.Debug().
				Str("attribute", name).
				Str("href", row.Meta.Href).
				Msg("Attachment attribute resolved")
			return reconciliation.AttributeDescriptor{
				Meta: reconciliation.AttributeMeta{
					Href: row.Meta.Href,
					Type: row.Meta.Type,
				},
			}, nil
		}
	}

	return reconciliation.AttributeDescriptor{}, fmt.Errorf("%s: %q: %w", op, name, ErrAttributeNotFound)
}

// SendEntity pushes one entity type's update records as a bulk POST.
// Records are serialized in key order so retried batches stay byte-stable.
func (c *Client) SendEntity(ctx context.Context, entityType string, records map[string]reconciliation.Update) error {
	const op = "SendEntity"

	if len(records) == 0 {
		return fmt.Errorf("%s: %s: %w", op, entityType, ErrEmptyBatch)
	}

	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := make([]any, 0, len(records))
	for _, k := range keys {
		body, err := c.updatePayload(entityType, records[k])
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		payload = append(payload, body)
	}

	c.log.Info().
		Str("entity", entityType).
		Int("records", len(payload)).
		Msg("Sending entity updates")

	return c.post(ctx, op, "/entity/"+entityType, payload)
}

// updatePayload converts a core update record into its API body.
func (c *Client) updatePayload(entityType string, record reconciliation.Update) (any, error) {
	switch u := record.(type) {
	case reconciliation.PaymentUpdate:
		if entityType != reconciliation.EntityPaymentIn {
			return nil, fmt.Errorf("payment update in %s batch: %w", entityType, ErrUnknownEntityType)
		}
		return paymentUpdatePayload{
			Meta: c.entityMeta(reconciliation.EntityPaymentIn, u.PaymentID),
			Attributes: []attributePayload{{
				Meta: Meta{
					Href: u.Attribute.Meta.Href,
					Type: u.Attribute.Meta.Type,
				},
				Value: u.Attribute.Value,
			}},
			Operations: []operationPayload{{
				Meta: c.entityMeta(reconciliation.EntityInvoiceOut, u.InvoiceID),
			}},
		}, nil
	case reconciliation.InvoiceUpdate:
		if entityType != reconciliation.EntityInvoiceOut {
			return nil, fmt.Errorf("invoice update in %s batch: %w", entityType, ErrUnknownEntityType)
		}
		return invoiceUpdatePayload{
			Meta:     c.entityMeta(reconciliation.EntityInvoiceOut, u.InvoiceID),
			PayedSum: u.PayedSum,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported update record %T: %w", record, ErrUnknownEntityType)
	}
}

// entityMeta builds the reference header for an entity of the given type.
func (c *Client) entityMeta(entityType, id string) Meta {
	return Meta{
		Href:      fmt.Sprintf("%s/entity/%s/%s", c.baseURL, entityType, id),
		Type:      entityType,
		MediaType: "application/json",
	}
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	return c.do(op, req, out)
}

func (c *Client) post(ctx context.Context, op, path string, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: failed to encode request body: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(op, req, nil)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return newAPIError(op, resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}
