package removal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"backdrop/internal/domain"
	"backdrop/internal/infra"
	"backdrop/internal/providers/replicate"
	"backdrop/internal/quota"
)

// MaxImageBytes caps the accepted payload size.
const MaxImageBytes = 10 << 20

// PredictionClient abstracts the external prediction service.
type PredictionClient interface {
	HasCredentials() bool
	Create(ctx context.Context, input map[string]any) (*replicate.Prediction, error)
	Get(ctx context.Context, id string) (*replicate.Prediction, error)
	FetchOutput(ctx context.Context, url string) ([]byte, error)
}

// Authorizer decides whether a user may run one more job this month.
type Authorizer interface {
	Authorize(ctx context.Context, ac *domain.AuthContext, action domain.Action) (*quota.Decision, error)
}

// UsageRecorder appends a usage event after a successful job.
type UsageRecorder interface {
	Record(ctx context.Context, userID int64, action domain.Action) error
}

// Image is the submitted payload.
type Image struct {
	Data        []byte
	ContentType string
}

// Params tunes the removal model.
type Params struct {
	Format         string
	Reverse        bool
	Threshold      float64
	BackgroundType string
}

// Result is the processed image handed back to the caller.
type Result struct {
	Data         []byte
	ContentType  string
	PredictionID string
}

// Options configures an Orchestrator.
type Options struct {
	Client       PredictionClient
	Quota        Authorizer
	Usage        UsageRecorder
	Logger       infra.Logger
	PollInterval time.Duration
	PollDeadline time.Duration
	Sleep        func(ctx context.Context, d time.Duration) error
	Now          func() time.Time
}

// Orchestrator drives one image through the external prediction service:
// validate, authorize, submit, poll to a terminal state, fetch the output,
// record usage, and return bytes or a classified error.
type Orchestrator struct {
	client       PredictionClient
	quota        Authorizer
	usage        UsageRecorder
	logger       infra.Logger
	pollInterval time.Duration
	pollDeadline time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	now          func() time.Time
}

// NewOrchestrator constructs an orchestrator, applying defaults for the
// polling policy and clock.
func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		client:       opts.Client,
		quota:        opts.Quota,
		usage:        opts.Usage,
		logger:       opts.Logger,
		pollInterval: opts.PollInterval,
		pollDeadline: opts.PollDeadline,
		sleep:        opts.Sleep,
		now:          opts.Now,
	}
	if o.pollInterval <= 0 {
		o.pollInterval = time.Second
	}
	if o.pollDeadline <= 0 {
		o.pollDeadline = 90 * time.Second
	}
	if o.sleep == nil {
		o.sleep = sleepContext
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Run executes one job for an authenticated user. Validation and quota
// failures return before anything is submitted upstream.
func (o *Orchestrator) Run(ctx context.Context, ac *domain.AuthContext, img Image, params Params) (*Result, error) {
	if err := validateImage(img); err != nil {
		return nil, err
	}
	params = normalizeParams(params)

	decision, err := o.quota.Authorize(ctx, ac, domain.ActionBackgroundRemoval)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "internal server error", err)
	}
	if !decision.Allowed {
		return nil, domain.E(domain.KindForbiddenTier,
			fmt.Sprintf("monthly limit of %d background removals reached, upgrade to continue", decision.Limit))
	}

	if !o.client.HasCredentials() {
		o.logger.Error().Msg("prediction service credentials missing")
		return nil, domain.E(domain.KindServiceUnconfigured, "background removal is temporarily unavailable, please try again later")
	}

	job := domain.Job{Status: domain.JobUnsubmitted}
	pred, err := o.client.Create(ctx, predictionInput(img, params))
	if err != nil {
		return nil, classifyUpstream(err)
	}
	job.Status = domain.JobPending
	job.PredictionID = pred.ID

	pred, err = o.poll(ctx, pred)
	if err != nil {
		return nil, err
	}

	if pred.Status != replicate.StatusSucceeded {
		job.Status = domain.JobFailed
		o.logger.Warn().Str("prediction_id", job.PredictionID).Str("status", string(pred.Status)).
			Str("error", pred.Error).Msg("prediction failed")
		return nil, classifyFailureMessage(pred.Error)
	}

	var outputURL string
	if err := json.Unmarshal(pred.Output, &outputURL); err != nil || strings.TrimSpace(outputURL) == "" {
		job.Status = domain.JobFailed
		return nil, domain.E(domain.KindUpstreamFetch, "failed to retrieve the processed image, please try again")
	}
	job.OutputURL = outputURL

	data, err := o.client.FetchOutput(ctx, outputURL)
	if err != nil {
		job.Status = domain.JobFailed
		return nil, domain.Wrap(domain.KindUpstreamFetch, "failed to retrieve the processed image, please try again", err)
	}
	job.Status = domain.JobSucceeded

	// Record only after success and before handing bytes back. A crash in
	// between leaves the job unrecorded; undercounting is acceptable,
	// overcounting is not.
	if err := o.usage.Record(ctx, ac.UserID, domain.ActionBackgroundRemoval); err != nil {
		o.logger.Error().Err(err).Int64("user_id", ac.UserID).Msg("usage event append failed")
	}

	return &Result{
		Data:         data,
		ContentType:  mediaTypeForFormat(params.Format),
		PredictionID: job.PredictionID,
	}, nil
}

// poll fetches prediction status at a fixed interval until a terminal
// state or the deadline. Each round trip blocks only this request.
func (o *Orchestrator) poll(ctx context.Context, pred *replicate.Prediction) (*replicate.Prediction, error) {
	deadline := o.now().Add(o.pollDeadline)
	for !pred.Status.Terminal() {
		if o.now().After(deadline) {
			o.logger.Warn().Str("prediction_id", pred.ID).Msg("prediction poll deadline exceeded")
			return nil, domain.E(domain.KindUpstreamModel, "processing took too long, please try again")
		}
		if err := o.sleep(ctx, o.pollInterval); err != nil {
			return nil, domain.Wrap(domain.KindInternal, "internal server error", err)
		}
		next, err := o.client.Get(ctx, pred.ID)
		if err != nil {
			return nil, classifyUpstream(err)
		}
		pred = next
	}
	return pred, nil
}

func validateImage(img Image) error {
	if len(img.Data) == 0 {
		return domain.E(domain.KindInvalidInput, "no image provided")
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return domain.E(domain.KindInvalidInput, "invalid file type, expected an image")
	}
	if len(img.Data) > MaxImageBytes {
		return domain.E(domain.KindInvalidInput, "file too large, maximum size is 10 MiB")
	}
	return nil
}

func normalizeParams(p Params) Params {
	p.Format = strings.ToLower(strings.TrimSpace(p.Format))
	switch p.Format {
	case "png", "jpg", "webp":
	default:
		p.Format = "png"
	}
	p.BackgroundType = strings.TrimSpace(p.BackgroundType)
	return p
}

func predictionInput(img Image, params Params) map[string]any {
	dataURL := "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	input := map[string]any{
		"image":  dataURL,
		"format": params.Format,
	}
	if params.Reverse {
		input["reverse"] = true
	}
	if params.Threshold > 0 {
		input["threshold"] = params.Threshold
	}
	if params.BackgroundType != "" {
		input["background_type"] = params.BackgroundType
	}
	return input
}

func mediaTypeForFormat(format string) string {
	switch format {
	case "jpg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
