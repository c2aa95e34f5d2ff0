package removal

import (
	"context"
	"errors"
	"strings"

	"backdrop/internal/domain"
	"backdrop/internal/providers/replicate"
)

// Caller-facing messages per error kind. Auth failures point at support,
// capacity problems at retrying later, model failures at the image itself.
const (
	msgUpstreamAuth    = "the processing service rejected our credentials, please contact support"
	msgUpstreamRate    = "the processing service is busy, please try again later"
	msgUpstreamBilling = "the processing service is temporarily unavailable, please try again later"
	msgUpstreamModel   = "the model could not process this image, please try a different image"
)

// classifyUpstream maps an error from a submit or poll round trip to the
// stable error taxonomy. Structured status codes are preferred; text
// matching is the last resort and lives only here.
func classifyUpstream(err error) error {
	if errors.Is(err, replicate.ErrMissingAPIToken) {
		return domain.Wrap(domain.KindServiceUnconfigured, "background removal is temporarily unavailable, please try again later", err)
	}

	var apiErr *replicate.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return domain.Wrap(domain.KindUpstreamAuth, msgUpstreamAuth, err)
		case 402:
			return domain.Wrap(domain.KindUpstreamBilling, msgUpstreamBilling, err)
		case 429:
			return domain.Wrap(domain.KindUpstreamRateLimited, msgUpstreamRate, err)
		}
		if kind, msg, ok := matchErrorText(apiErr.Detail); ok {
			return domain.Wrap(kind, msg, err)
		}
		return domain.Wrap(domain.KindUpstreamModel, msgUpstreamModel, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Wrap(domain.KindInternal, "internal server error", err)
	}

	if kind, msg, ok := matchErrorText(err.Error()); ok {
		return domain.Wrap(kind, msg, err)
	}
	return domain.Wrap(domain.KindInternal, "internal server error", err)
}

// classifyFailureMessage maps a terminal failed prediction to a kind using
// the service-reported error text.
func classifyFailureMessage(msg string) error {
	if kind, m, ok := matchErrorText(msg); ok {
		return domain.E(kind, m)
	}
	return domain.E(domain.KindUpstreamModel, msgUpstreamModel)
}

func matchErrorText(s string) (domain.Kind, string, bool) {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "unauthorized"), strings.Contains(s, "authentication"), strings.Contains(s, "invalid token"):
		return domain.KindUpstreamAuth, msgUpstreamAuth, true
	case strings.Contains(s, "rate limit"), strings.Contains(s, "too many requests"):
		return domain.KindUpstreamRateLimited, msgUpstreamRate, true
	case strings.Contains(s, "billing"), strings.Contains(s, "payment"), strings.Contains(s, "insufficient credit"):
		return domain.KindUpstreamBilling, msgUpstreamBilling, true
	}
	return "", "", false
}
