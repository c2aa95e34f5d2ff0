package removal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"backdrop/internal/domain"
	"backdrop/internal/providers/replicate"
	"backdrop/internal/quota"
)

type fakeClient struct {
	creds bool

	createCalls int
	getCalls    int
	fetchCalls  int

	createErr error
	getErr    error
	fetchErr  error

	sequence []replicate.Status
	output   json.RawMessage
	failMsg  string

	lastInput  map[string]any
	fetchedURL string
	fetchData  []byte
}

func (f *fakeClient) HasCredentials() bool { return f.creds }

func (f *fakeClient) Create(_ context.Context, input map[string]any) (*replicate.Prediction, error) {
	f.createCalls++
	f.lastInput = input
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.state("pred-1", 0), nil
}

func (f *fakeClient) Get(_ context.Context, id string) (*replicate.Prediction, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	idx := f.getCalls
	if idx >= len(f.sequence) {
		idx = len(f.sequence) - 1
	}
	return f.state(id, idx), nil
}

func (f *fakeClient) state(id string, idx int) *replicate.Prediction {
	status := replicate.StatusProcessing
	if len(f.sequence) > 0 {
		status = f.sequence[idx]
	}
	p := &replicate.Prediction{ID: id, Status: status}
	if status == replicate.StatusSucceeded {
		p.Output = f.output
	}
	if status == replicate.StatusFailed {
		p.Error = f.failMsg
	}
	return p
}

func (f *fakeClient) FetchOutput(_ context.Context, url string) ([]byte, error) {
	f.fetchCalls++
	f.fetchedURL = url
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetchData, nil
}

type fakeAuthorizer struct {
	decision quota.Decision
	err      error
	calls    int
}

func (f *fakeAuthorizer) Authorize(_ context.Context, _ *domain.AuthContext, _ domain.Action) (*quota.Decision, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &f.decision, nil
}

type fakeRecorder struct {
	calls int
	err   error
}

func (f *fakeRecorder) Record(_ context.Context, _ int64, _ domain.Action) error {
	f.calls++
	return f.err
}

type fixture struct {
	client *fakeClient
	quota  *fakeAuthorizer
	usage  *fakeRecorder
	orch   *Orchestrator
}

func newFixture(client *fakeClient) *fixture {
	f := &fixture{
		client: client,
		quota:  &fakeAuthorizer{decision: quota.Decision{Allowed: true, Limit: 3}},
		usage:  &fakeRecorder{},
	}
	f.orch = NewOrchestrator(Options{
		Client:       client,
		Quota:        f.quota,
		Usage:        f.usage,
		Logger:       zerolog.New(io.Discard),
		PollInterval: time.Second,
		PollDeadline: 90 * time.Second,
		Sleep:        func(context.Context, time.Duration) error { return nil },
	})
	return f
}

func user() *domain.AuthContext {
	return &domain.AuthContext{UserID: 7, Tier: domain.TierFree}
}

func pngImage(size int) Image {
	return Image{Data: bytes.Repeat([]byte{0xAB}, size), ContentType: "image/png"}
}

func assertKind(t *testing.T, err error, want domain.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := domain.KindOf(err); got != want {
		t.Fatalf("error kind = %s, want %s (err: %v)", got, want, err)
	}
}

func TestRunRejectsMissingImage(t *testing.T) {
	f := newFixture(&fakeClient{creds: true})

	_, err := f.orch.Run(context.Background(), user(), Image{}, Params{})
	assertKind(t, err, domain.KindInvalidInput)
	if !strings.Contains(err.Error(), "no image provided") {
		t.Fatalf("missing payload should be its own message, got %v", err)
	}
	if f.client.createCalls != 0 {
		t.Fatalf("no external call expected, got %d", f.client.createCalls)
	}
}

func TestRunRejectsNonImageType(t *testing.T) {
	f := newFixture(&fakeClient{creds: true})

	img := Image{Data: []byte("hello"), ContentType: "text/plain"}
	_, err := f.orch.Run(context.Background(), user(), img, Params{})
	assertKind(t, err, domain.KindInvalidInput)
	if f.client.createCalls != 0 {
		t.Fatalf("no external call expected, got %d", f.client.createCalls)
	}
}

func TestRunRejectsOversizedImage(t *testing.T) {
	f := newFixture(&fakeClient{creds: true})

	_, err := f.orch.Run(context.Background(), user(), pngImage(11<<20), Params{})
	assertKind(t, err, domain.KindInvalidInput)
	if f.client.createCalls != 0 {
		t.Fatalf("no external call expected, got %d", f.client.createCalls)
	}
}

func TestRunDeniedByQuota(t *testing.T) {
	f := newFixture(&fakeClient{creds: true})
	f.quota.decision = quota.Decision{Allowed: false, Reason: quota.DenyQuotaExceeded, Limit: 3}

	_, err := f.orch.Run(context.Background(), user(), pngImage(100), Params{})
	assertKind(t, err, domain.KindForbiddenTier)
	if !strings.Contains(err.Error(), "3") {
		t.Fatalf("deny message should carry the limit, got %v", err)
	}
	if f.client.createCalls != 0 {
		t.Fatalf("quota deny must happen before submission")
	}
}

func TestRunUnconfiguredService(t *testing.T) {
	f := newFixture(&fakeClient{creds: false})

	_, err := f.orch.Run(context.Background(), user(), pngImage(100), Params{})
	assertKind(t, err, domain.KindServiceUnconfigured)
	if f.client.createCalls != 0 {
		t.Fatalf("unconfigured service must not be called")
	}
}

func TestRunSuccessFetchesOutputAndRecordsUsage(t *testing.T) {
	client := &fakeClient{
		creds:     true,
		sequence:  []replicate.Status{replicate.StatusStarting, replicate.StatusProcessing, replicate.StatusSucceeded},
		output:    json.RawMessage(`"https://x/out.png"`),
		fetchData: []byte("processed-bytes"),
	}
	f := newFixture(client)

	res, err := f.orch.Run(context.Background(), user(), pngImage(100), Params{Format: "png"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if client.fetchedURL != "https://x/out.png" {
		t.Fatalf("fetched %q, want the prediction output url", client.fetchedURL)
	}
	if string(res.Data) != "processed-bytes" {
		t.Fatalf("result bytes = %q", res.Data)
	}
	if res.ContentType != "image/png" {
		t.Fatalf("content type = %q, want image/png", res.ContentType)
	}
	if res.PredictionID != "pred-1" {
		t.Fatalf("prediction id = %q", res.PredictionID)
	}
	if f.usage.calls != 1 {
		t.Fatalf("usage events appended = %d, want exactly 1", f.usage.calls)
	}

	if _, ok := client.lastInput["image"].(string); !ok {
		t.Fatalf("submit input should carry a data url image")
	}
	if !strings.HasPrefix(client.lastInput["image"].(string), "data:image/png;base64,") {
		t.Fatalf("image input = %.40q, want data url", client.lastInput["image"])
	}
}

func TestRunTerminalFailureClassifiesModelError(t *testing.T) {
	client := &fakeClient{
		creds:    true,
		sequence: []replicate.Status{replicate.StatusProcessing, replicate.StatusFailed},
		failMsg:  "NSFW content detected",
	}
	f := newFixture(client)

	_, err := f.orch.Run(context.Background(), user(), pngImage(100), Params{})
	assertKind(t, err, domain.KindUpstreamModel)
	if f.usage.calls != 0 {
		t.Fatalf("failed job must not record usage, got %d", f.usage.calls)
	}
}

func TestRunFailureMessageTextMatching(t *testing.T) {
	cases := []struct {
		msg  string
		want domain.Kind
	}{
		{"rate limit exceeded", domain.KindUpstreamRateLimited},
		{"authentication credentials were not provided", domain.KindUpstreamAuth},
		{"billing required to run this model", domain.KindUpstreamBilling},
		{"something exploded", domain.KindUpstreamModel},
	}
	for _, tc := range cases {
		client := &fakeClient{
			creds:    true,
			sequence: []replicate.Status{replicate.StatusFailed},
			failMsg:  tc.msg,
		}
		f := newFixture(client)
		_, err := f.orch.Run(context.Background(), user(), pngImage(100), Params{})
		assertKind(t, err, tc.want)
	}
}

func TestRunSubmitAPIErrorStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   domain.Kind
	}{
		{401, domain.KindUpstreamAuth},
		{403, domain.KindUpstreamAuth},
		{402, domain.KindUpstreamBilling},
		{429, domain.KindUpstreamRateLimited},
		{500, domain.KindUpstreamModel},
	}
	for _, tc := range cases {
		client := &fakeClient{
			creds:     true,
			createErr: &replicate.APIError{StatusCode: tc.status, Detail: "nope"},
		}
		f := newFixture(client)
		_, err := f.orch.Run(context.Background(), user(), pngImage(100), Params{})
		assertKind(t, err, tc.want)
		if f.usage.calls != 0 {
			t.Fatalf("failed submit must not record usage")
		}
	}
}

func TestRunMissingTokenClassifiedUnconfigured(t *testing.T) {
	client := &fakeClient{creds: true, createErr: replicate.ErrMissingAPIToken}
	f := newFixture(client)

	_, err := f.orch.Run(context.Background(), user(), pngImage(100), Params{})
	assertKind(t, err, domain.KindServiceUnconfigured)
}

func TestRunNonStringOutput(t *testing.T) {
	client := &fakeClient{
		creds:    true,
		sequence: []replicate.Status{replicate.StatusSucceeded},
		output:   json.RawMessage(`["https://x/a.png","https://x/b.png"]`),
	}
	f := newFixture(client)

	_, err := f.orch.Run(context.Background(), user(), pngImage(100), Params{})
	assertKind(t, err, domain.KindUpstreamFetch)
	if f.usage.calls != 0 {
		t.Fatalf("fetch failure must not record usage")
	}
}

func TestRunFetchFailure(t *testing.T) {
	client := &fakeClient{
		creds:    true,
		sequence: []replicate.Status{replicate.StatusSucceeded},
		output:   json.RawMessage(`"https://x/out.png"`),
		fetchErr: errors.New("fetch output: unexpected status 404"),
	}
	f := newFixture(client)

	_, err := f.orch.Run(context.Background(), user(), pngImage(100), Params{})
	assertKind(t, err, domain.KindUpstreamFetch)
	if f.usage.calls != 0 {
		t.Fatalf("fetch failure must not record usage")
	}
}

func TestRunPollDeadline(t *testing.T) {
	client := &fakeClient{creds: true} // never leaves processing
	f := newFixture(client)

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	f.orch.now = func() time.Time {
		now = now.Add(30 * time.Second)
		return now
	}

	_, err := f.orch.Run(context.Background(), user(), pngImage(100), Params{})
	assertKind(t, err, domain.KindUpstreamModel)
	if !strings.Contains(err.Error(), "took too long") {
		t.Fatalf("deadline error should mention timeout, got %v", err)
	}
}

func TestRunUsageRecordFailureDoesNotFailJob(t *testing.T) {
	client := &fakeClient{
		creds:     true,
		sequence:  []replicate.Status{replicate.StatusSucceeded},
		output:    json.RawMessage(`"https://x/out.png"`),
		fetchData: []byte("ok"),
	}
	f := newFixture(client)
	f.usage.err = errors.New("insert failed")

	res, err := f.orch.Run(context.Background(), user(), pngImage(100), Params{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if string(res.Data) != "ok" {
		t.Fatalf("result bytes = %q", res.Data)
	}
}

func TestRunFormatMediaTypes(t *testing.T) {
	cases := []struct {
		format string
		want   string
	}{
		{"png", "image/png"},
		{"jpg", "image/jpeg"},
		{"webp", "image/webp"},
		{"bmp", "image/png"}, // unsupported falls back
		{"", "image/png"},
	}
	for _, tc := range cases {
		client := &fakeClient{
			creds:     true,
			sequence:  []replicate.Status{replicate.StatusSucceeded},
			output:    json.RawMessage(`"https://x/out"`),
			fetchData: []byte("ok"),
		}
		f := newFixture(client)
		res, err := f.orch.Run(context.Background(), user(), pngImage(100), Params{Format: tc.format})
		if err != nil {
			t.Fatalf("Run(format=%q) error: %v", tc.format, err)
		}
		if res.ContentType != tc.want {
			t.Fatalf("format %q content type = %q, want %q", tc.format, res.ContentType, tc.want)
		}
	}
}
