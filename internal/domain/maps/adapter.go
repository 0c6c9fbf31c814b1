package maps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/apilog"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
	"github.com/f-lab-edu/Meet-Up-Spot/pkg/metrics"
)

// Adapter is the wrapping layer every provider call passes through:
// log request, invoke (with bounded retry on transient failure), classify
// the result, persist an audit row on failure, log the outcome, rethrow.
type Adapter struct {
	client  Client
	logs    apilog.Repository
	logger  *slog.Logger
	metrics *metrics.Metrics

	maxRetries   uint64
	retryBackoff time.Duration
	defaultLang  string
	defaultMode  types.TravelMode
}

type AdapterConfig struct {
	MaxRetries   uint64
	RetryBackoff time.Duration
	Language     string
	TravelMode   types.TravelMode
}

func NewAdapter(client Client, logs apilog.Repository, logger *slog.Logger, m *metrics.Metrics, cfg AdapterConfig) *Adapter {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.Language == "" {
		cfg.Language = "ko"
	}
	if !cfg.TravelMode.Valid() {
		cfg.TravelMode = types.ModeTransit
	}
	return &Adapter{
		client:       client,
		logs:         logs,
		logger:       logger,
		metrics:      m,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		defaultLang:  cfg.Language,
		defaultMode:  cfg.TravelMode,
	}
}

// Geocode resolves an address to coordinates. Zero results surface as
// types.ErrZeroResults, distinct from provider failures.
func (a *Adapter) Geocode(ctx context.Context, user *types.User, address string) ([]types.GeocodeResult, error) {
	var results []types.GeocodeResult
	err := a.invoke(ctx, user, fnGeocode, address, func(ctx context.Context) error {
		var callErr error
		results, callErr = a.client.Geocode(ctx, address)
		if callErr != nil {
			return callErr
		}
		if len(results) == 0 {
			return fmt.Errorf("geocoding %q: %w", address, types.ErrZeroResults)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// NearbySearch queries venues around a point. Zero results surface as
// types.ErrZeroResults.
func (a *Adapter) NearbySearch(ctx context.Context, user *types.User, req NearbySearchRequest) ([]types.NearbyPlace, error) {
	if req.Language == "" {
		req.Language = a.defaultLang
	}

	var results []types.NearbyPlace
	payload := fmt.Sprintf("lat=%v lng=%v radius=%d type=%s", req.Latitude, req.Longitude, req.RadiusM, req.Category)
	err := a.invoke(ctx, user, fnNearbySearch, payload, func(ctx context.Context) error {
		var callErr error
		results, callErr = a.client.NearbySearch(ctx, req)
		if callErr != nil {
			return callErr
		}
		if len(results) == 0 {
			return fmt.Errorf("nearby search at (%v,%v): %w", req.Latitude, req.Longitude, types.ErrZeroResults)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DistanceMatrix computes distance and duration for every origin x
// destination pair. An unresolvable origin surfaces as types.ErrNoAddress;
// pairs without a route keep nil numeric values and flow through for the
// matrix layer to exclude from rankings.
func (a *Adapter) DistanceMatrix(ctx context.Context, user *types.User, req DistanceMatrixRequest) ([]types.DistanceInfo, error) {
	if req.Language == "" {
		req.Language = a.defaultLang
	}
	if !req.Mode.Valid() {
		req.Mode = a.defaultMode
	}

	var results []types.DistanceInfo
	payload := fmt.Sprintf("origins=%v destinations=%v mode=%s", req.Origins, req.DestinationIDs, req.Mode)
	err := a.invoke(ctx, user, fnDistanceMatrix, payload, func(ctx context.Context) error {
		var callErr error
		results, callErr = a.client.DistanceMatrix(ctx, req)
		if callErr != nil {
			return callErr
		}
		if len(results) == 0 {
			return fmt.Errorf("distance matrix: %w", types.ErrZeroResults)
		}
		for _, info := range results {
			if info.Origin == "" {
				return fmt.Errorf("distance matrix origin unresolved: %w", types.ErrNoAddress)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// invoke is the shared pre/post hook around one provider call.
func (a *Adapter) invoke(ctx context.Context, user *types.User, function, payload string, call func(context.Context) error) error {
	l := a.logger.With(slog.String("function", function))
	l.DebugContext(ctx, "provider call started")

	start := time.Now()
	backoff := retry.WithMaxRetries(a.maxRetries, retry.NewExponential(a.retryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		callErr := call(ctx)
		if callErr == nil || !isTransient(callErr) {
			return callErr
		}
		return retry.RetryableError(callErr)
	})
	elapsed := time.Since(start)
	a.metrics.ProviderLatency.WithLabelValues(function).Observe(elapsed.Seconds())

	if err != nil {
		classified := classify(err)
		a.metrics.ProviderCalls.WithLabelValues(function, statusLabel(classified)).Inc()
		a.audit(ctx, user, function, payload, classified)
		l.WarnContext(ctx, "provider call failed",
			slog.Duration("duration", elapsed), slog.Any("error", classified))
		return classified
	}

	a.metrics.ProviderCalls.WithLabelValues(function, "ok").Inc()
	l.DebugContext(ctx, "provider call completed", slog.Duration("duration", elapsed))
	return nil
}

// classify maps a raw failure into the error taxonomy; the original cause
// is preserved in the chain for logging.
func classify(err error) error {
	switch {
	case errors.Is(err, types.ErrZeroResults),
		errors.Is(err, types.ErrNoAddress),
		errors.Is(err, types.ErrBadRequest),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", types.ErrProvider, err)
	}
}

// isTransient reports whether a failure is worth retrying. Definitive
// outcomes (empty results, malformed input, cancelled context) are not.
func isTransient(err error) bool {
	return !errors.Is(err, types.ErrZeroResults) &&
		!errors.Is(err, types.ErrNoAddress) &&
		!errors.Is(err, types.ErrBadRequest) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func statusLabel(err error) string {
	switch {
	case errors.Is(err, types.ErrZeroResults):
		return "zero_results"
	case errors.Is(err, types.ErrNoAddress):
		return "no_address"
	case errors.Is(err, types.ErrBadRequest):
		return "invalid_request"
	default:
		return "error"
	}
}

func (a *Adapter) audit(ctx context.Context, user *types.User, function, payload string, cause error) {
	entry := apilog.Entry{
		RequestURL: requestURLs[function],
		StatusCode: auditStatusCode(cause),
		Reason:     cause.Error(),
		Payload:    payload,
	}
	if user != nil {
		entry.UserID = user.ID
	}
	if err := a.logs.Create(ctx, entry); err != nil {
		// Auditing must never mask the provider outcome.
		a.logger.ErrorContext(ctx, "failed to persist api log",
			slog.String("function", function), slog.Any("error", err))
	}
}

func auditStatusCode(err error) int {
	switch {
	case errors.Is(err, types.ErrZeroResults):
		return 204
	case errors.Is(err, types.ErrNoAddress), errors.Is(err, types.ErrBadRequest):
		return 400
	default:
		return 500
	}
}
