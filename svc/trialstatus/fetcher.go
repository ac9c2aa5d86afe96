package trialstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trialcycle/pkg/subscription"
	"github.com/dmitrymomot/trialcycle/svc/trial"
)

// Fetcher returns the server-resolved trial state of an account.
// Implementations try the plan-enriched view first and fall back to the
// bare subscription view; ErrNoSubscription means both came back empty.
type Fetcher interface {
	Fetch(ctx context.Context, accountID uuid.UUID) (trial.StatusView, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, accountID uuid.UUID) (trial.StatusView, error)

func (f FetcherFunc) Fetch(ctx context.Context, accountID uuid.UUID) (trial.StatusView, error) {
	return f(ctx, accountID)
}

// StatusResolver is satisfied by *trial.StatusService.
type StatusResolver interface {
	Status(ctx context.Context, accountID uuid.UUID, withPlan bool) (trial.StatusView, error)
}

// ServiceFetcher resolves in-process through the trial status service.
type ServiceFetcher struct {
	svc StatusResolver
}

func NewServiceFetcher(svc StatusResolver) *ServiceFetcher {
	if svc == nil {
		panic("trialstatus: status service cannot be nil")
	}
	return &ServiceFetcher{svc: svc}
}

func (f *ServiceFetcher) Fetch(ctx context.Context, accountID uuid.UUID) (trial.StatusView, error) {
	view, err := f.svc.Status(ctx, accountID, true)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		view, err = f.svc.Status(ctx, accountID, false)
	}
	switch {
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		return trial.StatusView{}, ErrNoSubscription
	case err != nil:
		return trial.StatusView{}, errors.Join(ErrFetchFailed, err)
	}
	return view, nil
}

// HTTPFetcher calls the trial status endpoint:
// GET {baseURL}/status/{accountID}?include=plan, then without include on 404.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the default client with a 10s timeout.
func WithHTTPClient(c *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// NewHTTPFetcher targets baseURL, e.g. "https://api.example.com/trial".
func NewHTTPFetcher(baseURL string, opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, accountID uuid.UUID) (trial.StatusView, error) {
	view, err := f.get(ctx, accountID, true)
	if errors.Is(err, ErrNoSubscription) {
		view, err = f.get(ctx, accountID, false)
	}
	return view, err
}

func (f *HTTPFetcher) get(ctx context.Context, accountID uuid.UUID, withPlan bool) (trial.StatusView, error) {
	u := f.baseURL + "/status/" + url.PathEscape(accountID.String())
	if withPlan {
		u += "?include=plan"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return trial.StatusView{}, errors.Join(ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return trial.StatusView{}, errors.Join(ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return trial.StatusView{}, ErrNoSubscription
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return trial.StatusView{}, errors.Join(ErrFetchFailed,
			fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var view trial.StatusView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return trial.StatusView{}, errors.Join(ErrFetchFailed, err)
	}
	return view, nil
}
