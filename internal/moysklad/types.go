package moysklad

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"payrecon/internal/reconciliation"
)

// Meta is the МойСклад entity reference header carried by every object.
type Meta struct {
	Href      string `json:"href"`
	Type      string `json:"type"`
	MediaType string `json:"mediaType,omitempty"`
}

// entityRef is a nested reference to another entity (organization, agent,
// organizationAccount).
type entityRef struct {
	Meta Meta `json:"meta"`
}

// id extracts the entity UUID from the reference href.
func (r *entityRef) id() string {
	if r == nil {
		return ""
	}
	href := r.Meta.Href
	if i := strings.IndexByte(href, '?'); i >= 0 {
		href = href[:i]
	}
	if i := strings.LastIndexByte(href, '/'); i >= 0 {
		href = href[i+1:]
	}
	return href
}

// listMeta is the paging envelope of a collection response.
type listMeta struct {
	Size   int `json:"size"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// paymentAttribute is one custom attribute value on a paymentin row. The
// value is kept raw: attribute types vary per tenant and only the boolean
// attachment flag is inspected.
type paymentAttribute struct {
	Meta  Meta            `json:"meta"`
	Value json.RawMessage `json:"value"`
}

// paymentRow is one paymentin entity as returned by the API.
type paymentRow struct {
	ID                  string             `json:"id"`
	Organization        *entityRef         `json:"organization"`
	Agent               *entityRef         `json:"agent"`
	OrganizationAccount *entityRef         `json:"organizationAccount"`
	Sum                 json.Number        `json:"sum"`
	PaymentPurpose      string             `json:"paymentPurpose"`
	Moment              string             `json:"moment"`
	Attributes          []paymentAttribute `json:"attributes"`
}

// attachedBy reports whether the row already carries the attachment
// attribute with a true value, meaning a previous run attached it.
func (r paymentRow) attachedBy(attributeHref string) bool {
	if attributeHref == "" {
		return false
	}
	for _, attr := range r.Attributes {
		if attr.Meta.Href == attributeHref && string(attr.Value) == "true" {
			return true
		}
	}
	return false
}

type paymentList struct {
	Meta listMeta     `json:"meta"`
	Rows []paymentRow `json:"rows"`
}

// invoiceRow is one invoiceout entity as returned by the API.
type invoiceRow struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Organization        *entityRef  `json:"organization"`
	Agent               *entityRef  `json:"agent"`
	OrganizationAccount *entityRef  `json:"organizationAccount"`
	Sum                 json.Number `json:"sum"`
	PayedSum            json.Number `json:"payedSum"`
	Moment              string      `json:"moment"`
}

type invoiceList struct {
	Meta listMeta     `json:"meta"`
	Rows []invoiceRow `json:"rows"`
}

// attributeRow is one custom attribute descriptor from paymentin metadata.
type attributeRow struct {
	Meta Meta   `json:"meta"`
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type attributeList struct {
	Rows []attributeRow `json:"rows"`
}

// Outbound payload shapes for bulk updates.

type attributePayload struct {
	Meta  Meta `json:"meta"`
	Value bool `json:"value"`
}

type operationPayload struct {
	Meta Meta `json:"meta"`
}

type paymentUpdatePayload struct {
	Meta       Meta               `json:"meta"`
	Attributes []attributePayload `json:"attributes"`
	Operations []operationPayload `json:"operations"`
}

type invoiceUpdatePayload struct {
	Meta     Meta  `json:"meta"`
	PayedSum int64 `json:"payedSum"`
}

// kopecks normalizes a МойСклад monetary JSON number into int64 kopecks.
// The API documents sums in minor units but serializes them as numbers
// that may carry a fractional part, so the value goes through decimal
// instead of float64.
func kopecks(n json.Number) (int64, error) {
	s := n.String()
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid monetary value %q: %w", s, err)
	}
	return d.Round(0).IntPart(), nil
}

// Moment formats observed in API responses, most to least specific.
var momentFormats = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseMoment(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, format := range momentFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse moment: %s", s)
}

// toDomain converts an API payment row into the matching core's model.
func (r paymentRow) toDomain() (reconciliation.Payment, error) {
	sum, err := kopecks(r.Sum)
	if err != nil {
		return reconciliation.Payment{}, fmt.Errorf("payment %s: %w", r.ID, err)
	}

	moment, err := parseMoment(r.Moment)
	if err != nil {
		return reconciliation.Payment{}, fmt.Errorf("payment %s: %w", r.ID, err)
	}

	return reconciliation.Payment{
		ID:             r.ID,
		OrganizationID: r.Organization.id(),
		AgentID:        r.Agent.id(),
		AccountID:      r.OrganizationAccount.id(),
		Sum:            sum,
		Purpose:        r.PaymentPurpose,
		Moment:         moment,
	}, nil
}

// toDomain converts an API invoice row into the matching core's model.
func (r invoiceRow) toDomain() (reconciliation.Invoice, error) {
	sum, err := kopecks(r.Sum)
	if err != nil {
		return reconciliation.Invoice{}, fmt.Errorf("invoice %s: %w", r.ID, err)
	}

	payedSum, err := kopecks(r.PayedSum)
	if err != nil {
		return reconciliation.Invoice{}, fmt.Errorf("invoice %s: %w", r.ID, err)
	}

	moment, err := parseMoment(r.Moment)
	if err != nil {
		return reconciliation.Invoice{}, fmt.Errorf("invoice %s: %w", r.ID, err)
	}

	return reconciliation.Invoice{
		ID:             r.ID,
		Name:           r.Name,
		OrganizationID: r.Organization.id(),
		AgentID:        r.Agent.id(),
		AccountID:      r.OrganizationAccount.id(),
		Sum:            sum,
		PayedSum:       payedSum,
		Moment:         moment,
	}, nil
}
