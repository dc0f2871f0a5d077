// Package remote is a client of the household retirement service.
//
// The service stores a household's family members and retirement funds, and
// computes each fund's year by year projection. All bodies are JSON objects
// using snake_case field names.
//
// Every failure is returned as a *retirement.Error:
//
//   - 404 is KindNotFound, the household has no data yet.
//   - transport failures and timeouts are KindConnectivity.
//   - other non 2xx statuses are KindServerFault, with the service "message" when present.
//   - undecodable bodies are KindMalformed.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/retirement"
	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds each request when the context has no deadline.
const DefaultTimeout = 10 * time.Second

// Client calls the retirement service at a base URL.
// It is safe for concurrent use.
type Client struct {
	base    string
	http    *fasthttp.Client
	timeout time.Duration
	verbose bool
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithVerbose logs every request and its status.
func WithVerbose(v bool) Option { return func(c *Client) { c.verbose = v } }

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(hc *fasthttp.Client) Option { return func(c *Client) { c.http = hc } }

// New returns a Client of the service at baseURL (e.g. "http://localhost:5000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &fasthttp.Client{Name: "retire"},
		timeout: DefaultTimeout,
		tracer:  otel.Tracer("github.com/etnz/retirement/remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RetirementData is the combined household payload.
type RetirementData struct {
	Funds   []retirement.RetirementFund `json:"retirement_fund_data"`
	Members []retirement.FamilyMember   `json:"family_info_data"`
}

type familyInfo struct {
	Members []retirement.FamilyMember `json:"family_info_data"`
}

type fundData struct {
	Funds []retirement.RetirementFund `json:"retirement_fund_data"`
}

type actualData struct {
	ActualData []retirement.ActualOverride `json:"actual_data"`
}

// GetFamilyInfo returns the household's members.
func (c *Client) GetFamilyInfo(ctx context.Context, userID string) ([]retirement.FamilyMember, error) {
	var resp familyInfo
	if err := c.do(ctx, "get_family_info", fasthttp.MethodGet, c.path("get_family_info", userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// UpdateFamilyInfo replaces the household's members.
func (c *Client) UpdateFamilyInfo(ctx context.Context, userID string, members []retirement.FamilyMember) error {
	if members == nil {
		members = []retirement.FamilyMember{}
	}
	return c.do(ctx, "update_family_info", fasthttp.MethodPost, c.path("update_family_info", userID), familyInfo{Members: members}, nil)
}

// GetRetirementData returns the household's funds, with their projections, and members.
func (c *Client) GetRetirementData(ctx context.Context, userID string) (RetirementData, error) {
	var resp RetirementData
	err := c.do(ctx, "get_retirement_data", fasthttp.MethodGet, c.path("get_retirement_data", userID), nil, &resp)
	return resp, err
}

// UpdateRetirementData replaces the household's funds.
//
// Projections are computed by the service, they are stripped from the body.
func (c *Client) UpdateRetirementData(ctx context.Context, userID string, funds []retirement.RetirementFund) error {
	body := fundData{Funds: make([]retirement.RetirementFund, len(funds))}
	for i, f := range funds {
		body.Funds[i] = f.WithoutProjection()
	}
	return c.do(ctx, "update_retirement_data", fasthttp.MethodPost, c.path("update_retirement_data", userID), body, nil)
}

// UpdateFundActuals replaces the actual overrides of a single fund.
func (c *Client) UpdateFundActuals(ctx context.Context, userID, fundID string, data []retirement.ActualOverride) error {
	if data == nil {
		data = []retirement.ActualOverride{}
	}
	return c.do(ctx, "update_fund_actuals", fasthttp.MethodPost, c.path("update_retirement_data", userID, "funds", fundID), actualData{ActualData: data}, nil)
}

// path joins escaped segments to the base URL.
func (c *Client) path(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.base)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// do sends 'in' as JSON (if not nil) and decodes the response into 'out' (if not nil).
func (c *Client) do(ctx context.Context, op, method, uri string, in, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "remote."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("http.request.method", method), attribute.String("url.full", uri))

	if err := ctx.Err(); err != nil {
		return retirement.NewError(retirement.KindConnectivity, op, "request cancelled", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return retirement.NewError(retirement.KindValidation, op, "cannot encode request", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(body)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		if c.verbose {
			log.Printf("%s %s: %v", method, uri, err)
		}
		msg := "backend unreachable"
		if errors.Is(err, fasthttp.ErrTimeout) {
			msg = "backend timed out"
		}
		return retirement.NewError(retirement.KindConnectivity, op, msg, err)
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if c.verbose {
		log.Printf("%s %s %d", method, uri, status)
	}

	switch {
	case status == fasthttp.StatusNotFound:
		return retirement.NewError(retirement.KindNotFound, op, serviceMessage(resp.Body(), "no data for this household"), nil)
	case status < 200 || status >= 300:
		return retirement.NewError(retirement.KindServerFault, op, serviceMessage(resp.Body(), fmt.Sprintf("backend answered %d", status)), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return retirement.NewError(retirement.KindMalformed, op, "cannot decode backend response", err)
	}
	return nil
}

// serviceMessage extracts the "message" of a service error body, or returns def.
//
// Error bodies look like {"message": "...", "status": "error"}.
func serviceMessage(body []byte, def string) string {
	var jobj any
	if err := json.Unmarshal(body, &jobj); err != nil {
		return def
	}
	jval, err := jsonpath.Get("$.message", jobj)
	if err != nil {
		return def
	}
	// jsonpath may return a list of one answer.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	if msg, ok := jval.(string); ok && strings.TrimSpace(msg) != "" {
		return msg
	}
	return def
}
