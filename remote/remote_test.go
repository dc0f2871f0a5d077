package remote

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/etnz/retirement"
	"github.com/etnz/retirement/date"
	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// request is what the fake service received.
type request struct {
	Method string
	Path   string
	Body   string
}

// serve starts an in memory service answering with handler and returns a client to it.
func serve(t *testing.T, handler func(ctx *fasthttp.RequestCtx)) (*Client, *[]request) {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	var received []request
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		received = append(received, request{
			Method: string(ctx.Method()),
			Path:   string(ctx.Path()),
			Body:   string(ctx.PostBody()),
		})
		handler(ctx)
	}}
	go srv.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { ln.Close() })

	hc := &fasthttp.Client{Dial: func(addr string) (net.Conn, error) { return ln.Dial() }}
	return New("http://backend", WithHTTPClient(hc), WithTimeout(2*time.Second)), &received
}

func reply(status int, body string) func(ctx *fasthttp.RequestCtx) {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(status)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(body)
	}
}

func TestGetFamilyInfo(t *testing.T) {
	c, received := serve(t, reply(200, `{"family_info_data":[{"id":"m1","name":"Alice","date_of_birth":"1985-03-12","life_expectancy":"90","retirement_age":65}]}`))

	got, err := c.GetFamilyInfo(context.Background(), "default-user")
	if err != nil {
		t.Fatalf("GetFamilyInfo() error = %v", err)
	}
	want := []retirement.FamilyMember{{ID: "m1", Name: "Alice", DateOfBirth: date.New(1985, 3, 12), LifeExpectancy: 90, RetirementAge: 65}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetFamilyInfo() = %v, want %v", got, want)
	}
	if r := (*received)[0]; r.Method != "GET" || r.Path != "/get_family_info/default-user" {
		t.Errorf("GetFamilyInfo() sent %s %s, want GET /get_family_info/default-user", r.Method, r.Path)
	}
}

func TestErrors(t *testing.T) {
	testCases := []struct {
		name    string
		handler func(ctx *fasthttp.RequestCtx)
		want    error
		message string
	}{
		{"not found", reply(404, `{"message":"No family info found","status":"error"}`), retirement.ErrNotFound, "No family info found"},
		{"server fault", reply(500, `{"message":"Internal server error: boom","status":"error"}`), retirement.ErrServerFault, "Internal server error: boom"},
		{"server fault without body", reply(502, `<html>bad gateway</html>`), retirement.ErrServerFault, "backend answered 502"},
		{"malformed", reply(200, `{"family_info_data": [`), retirement.ErrMalformed, "cannot decode backend response"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := serve(t, tc.handler)
			_, err := c.GetFamilyInfo(context.Background(), "u")
			if !errors.Is(err, tc.want) {
				t.Fatalf("GetFamilyInfo() error = %v, want %v", err, tc.want)
			}
			var e *retirement.Error
			if !errors.As(err, &e) || e.Message != tc.message {
				t.Errorf("GetFamilyInfo() message = %q, want %q", e.Message, tc.message)
			}
		})
	}
}

func TestConnectivity(t *testing.T) {
	hc := &fasthttp.Client{Dial: func(addr string) (net.Conn, error) { return nil, errors.New("connection refused") }}
	c := New("http://backend", WithHTTPClient(hc))
	_, err := c.GetRetirementData(context.Background(), "u")
	if !errors.Is(err, retirement.ErrConnectivity) {
		t.Errorf("GetRetirementData() error = %v, want a connectivity error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.UpdateFamilyInfo(ctx, "u", nil); !errors.Is(err, retirement.ErrConnectivity) {
		t.Errorf("UpdateFamilyInfo(cancelled) error = %v, want a connectivity error", err)
	}
}

func TestUpdateRetirementData(t *testing.T) {
	c, received := serve(t, reply(200, `{"status":"success"}`))

	fund := retirement.DefaultFund("f1", "m1", date.New(2025, 1, 1))
	fund.RetirementProjection = []retirement.YearProjection{{Year: 2025, EndAmount: 1100}}
	if err := c.UpdateRetirementData(context.Background(), "u", []retirement.RetirementFund{fund}); err != nil {
		t.Fatalf("UpdateRetirementData() error = %v", err)
	}

	r := (*received)[0]
	if r.Method != "POST" || r.Path != "/update_retirement_data/u" {
		t.Errorf("UpdateRetirementData() sent %s %s, want POST /update_retirement_data/u", r.Method, r.Path)
	}
	var body map[string][]map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("invalid body %q: %v", r.Body, err)
	}
	sent := body["retirement_fund_data"][0]
	if _, ok := sent["retirement_projection"]; ok {
		t.Errorf("UpdateRetirementData() sent the projection: %s", r.Body)
	}
	// numbers are sent as numbers.
	if v, ok := sent["initial_investment"].(float64); !ok || v != 1000 {
		t.Errorf("UpdateRetirementData() initial_investment = %#v, want 1000", sent["initial_investment"])
	}
	if v, ok := sent["family_member_id"].(string); !ok || v != "m1" {
		t.Errorf("UpdateRetirementData() family_member_id = %#v, want m1", sent["family_member_id"])
	}
}

func TestUpdateFundActuals(t *testing.T) {
	c, received := serve(t, reply(200, `{"status":"success"}`))

	data := []retirement.ActualOverride{{Year: 2024, ActualBalance: 1500, ActualContributions: 120, ActualGrowth: 80}}
	if err := c.UpdateFundActuals(context.Background(), "u", "f 1", data); err != nil {
		t.Fatalf("UpdateFundActuals() error = %v", err)
	}
	r := (*received)[0]
	if r.Path != "/update_retirement_data/u/funds/f 1" {
		t.Errorf("UpdateFundActuals() path = %q", r.Path)
	}
	want := `{"actual_data":[{"year":2024,"actual_balance":1500,"actual_contributions":120,"actual_growth":80}]}`
	if r.Body != want {
		t.Errorf("UpdateFundActuals() body = %s, want %s", r.Body, want)
	}
}
