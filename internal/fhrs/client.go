package fhrs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fhrs-archive/internal/components/assert"
	"fhrs-archive/internal/components/chrono"
	"fhrs-archive/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch_document          = "client.fetch-document"
	report_client_fetch_reference_dataset = "client.fetch-reference-dataset"
)

const DefaultApiUrl = "https://api.ratings.food.gov.uk"

// the upstream serves its open data files through a redirect that is rate limited much
// harder than the target, so known redirect prefixes are swapped for the direct host.
var directHostRewrites = []struct {
	from string
	to   string
}{
	{from: "http://ratings.food.gov.uk/OpenDataFiles/", to: "https://ratings.food.gov.uk/api/open-data-files/"},
	{from: "https://ratings.food.gov.uk/OpenDataFiles/", to: "https://ratings.food.gov.uk/api/open-data-files/"},
}

// RewriteDocumentUrl replaces a known redirect prefix with the direct-access prefix.
// URLs without a known prefix are returned unchanged.
func RewriteDocumentUrl(url string) string {
	for _, rewrite := range directHostRewrites {
		if strings.HasPrefix(url, rewrite.from) {
			return rewrite.to + url[len(rewrite.from):]
		}
	}
	return url
}

type Options struct {
	// ApiUrl is the base of the reference dataset endpoints, defaults to DefaultApiUrl.
	ApiUrl string
	// MaxAttempts bounds establishment fetches, defaults to 5.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry, doubled after each retry.
	// Defaults to 1s.
	InitialBackoff time.Duration
	// AttemptTimeout bounds a single attempt, a timed out attempt counts toward
	// MaxAttempts. Defaults to 60s.
	AttemptTimeout time.Duration
	// ReferencePause is the minimum spacing between reference dataset requests.
	// Defaults to 1s.
	ReferencePause time.Duration
	// Clock drives backoff sleeps, defaults to chrono.StandardImpl.
	Clock chrono.API
	// Output receives full request/response dumps when set.
	Output telemetry.MessageOutput
}

func (o Options) withDefaults() Options {
	if o.ApiUrl == "" {
		o.ApiUrl = DefaultApiUrl
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Second
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = time.Minute
	}
	if o.ReferencePause <= 0 {
		o.ReferencePause = time.Second
	}
	if o.Clock == nil {
		o.Clock = chrono.StandardImpl{}
	}
	return o
}

// Client talks to the ratings API and its open data file host.
type Client struct {
	http      *resty.Client
	opts      Options
	tel       telemetry.API
	reference *rate.Limiter
}

func NewClient(opts Options, tel telemetry.API) *Client {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("fhrs_client", tel)
	opts = opts.withDefaults()

	httpClient := resty.New()
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	for key, value := range fingerprintHeaders {
		httpClient.SetHeader(key, value)
	}
	httpClient.SetHeader("x-api-version", "2")

	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	return &Client{
		http: httpClient,
		opts: opts,
		tel:  tel,
		// burst 1 means the second request always waits out the full pause
		reference: rate.NewLimiter(rate.Every(opts.ReferencePause), 1),
	}
}

var fingerprintHeaders = map[string]string{
	"user-agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"cache-control":      "no-cache",
	"pragma":             "no-cache",
	"referer":            "https://ratings.food.gov.uk/",
	"sec-ch-ua":          `"Google Chrome";v="123", "Not:A-Brand";v="8", "Chromium";v="123"`,
	"sec-ch-ua-mobile":   "?0",
	"sec-ch-ua-platform": `"Windows"`,
	"sec-fetch-dest":     "empty",
	"sec-fetch-mode":     "cors",
	"sec-fetch-site":     "same-site",
}

func (c *Client) request(ctx context.Context, opts RequestOptions) *resty.Request {
	opts = opts.withDefaults()
	return c.http.R().
		SetContext(ctx).
		SetHeader("accept", opts.Format.accept()).
		SetHeader("accept-language", string(opts.Language))
}

type decision int

const (
	decisionSucceed decision = iota
	decisionRetry
	decisionFail
)

// classify is the single place that decides what a finished attempt means.
// ctx is the caller's context, not the per-attempt one, so a cancelled run is never retried.
func classify(ctx context.Context, res *resty.Response, err error) decision {
	if ctx.Err() != nil {
		return decisionFail
	}
	if err != nil {
		// connection errors and per-attempt timeouts
		return decisionRetry
	}
	if res.StatusCode() == http.StatusGatewayTimeout {
		return decisionRetry
	}
	if res.IsSuccess() {
		return decisionSucceed
	}
	return decisionFail
}

func statusError(url string, res *resty.Response) *StatusError {
	return &StatusError{
		Url:        url,
		StatusCode: res.StatusCode(),
		Status:     res.Status(),
		Body:       res.String(),
	}
}

// FetchDocument downloads an establishment document. Known redirect URLs are rewritten to
// the direct host first. 504s and network errors are retried with exponential backoff.
func (c *Client) FetchDocument(ctx context.Context, url string, opts RequestOptions) (string, error) {
	target := RewriteDocumentUrl(url)
	c.tel.ReportDebug(report_client_fetch_document, target)

	delay := c.opts.InitialBackoff
	for attempt := 1; ; attempt++ {
		res, err := c.attempt(ctx, target, opts)

		var last error
		switch classify(ctx, res, err) {
		case decisionSucceed:
			return res.String(), nil
		case decisionFail:
			if err == nil {
				err = statusError(target, res)
			} else if ctxErr := ctx.Err(); ctxErr != nil {
				err = fmt.Errorf("GET %s: %w", target, ctxErr)
			}
			c.tel.ReportBroken(report_client_fetch_document, err, target)
			return "", err
		case decisionRetry:
			last = err
			if last == nil {
				last = statusError(target, res)
			}
		}

		if attempt >= c.opts.MaxAttempts {
			exhausted := &ExhaustedError{Url: target, Attempts: attempt, Last: last}
			c.tel.ReportBroken(report_client_fetch_document, exhausted, target)
			return "", exhausted
		}

		c.tel.ReportWarning(
			report_client_fetch_document,
			fmt.Errorf("attempt %d: %w", attempt, last),
			target,
			delay.String(),
		)
		if err := c.opts.Clock.Sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("GET %s: %w", target, err)
		}
		delay *= 2
	}
}

func (c *Client) attempt(ctx context.Context, url string, opts RequestOptions) (*resty.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
	defer cancel()
	return c.request(attemptCtx, opts).Get(url)
}

// FetchReferenceDataset downloads a reference dataset. Requests through this method are
// paced by the client: each one waits until ReferencePause has passed since the previous.
func (c *Client) FetchReferenceDataset(ctx context.Context, dataset Dataset, opts RequestOptions) (string, error) {
	path, ok := datasetPaths[dataset]
	if !ok {
		return "", fmt.Errorf("unknown reference dataset %q", dataset)
	}
	url := strings.TrimSuffix(c.opts.ApiUrl, "/") + path

	err := c.reference.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}

	res, err := c.request(ctx, opts).Get(url)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_reference_dataset, err, url)
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	if !res.IsSuccess() {
		statusErr := statusError(url, res)
		c.tel.ReportBroken(report_client_fetch_reference_dataset, statusErr, url)
		return "", statusErr
	}
	return res.String(), nil
}

// IsTerminal reports whether err is a fetch failure that should abort a whole run
// rather than just the document it belongs to.
func IsTerminal(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}
