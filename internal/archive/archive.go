// Package archive runs a full mirror of the ratings API into a Store: every reference
// dataset in both languages and formats, then every authority's establishment documents.
package archive

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"fhrs-archive/internal/canonical"
	"fhrs-archive/internal/components/assert"
	"fhrs-archive/internal/components/telemetry"
	"fhrs-archive/internal/fhrs"
	"fhrs-archive/internal/schema"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_archive_reference = "archive.reference"
	report_archive_document  = "archive.document"
	report_archive_written   = "archive.written"
)

var (
	tracer = otel.Tracer("fhrs-archive/archive")
	meter  = otel.Meter("fhrs-archive/archive")
)

// Fetcher is the part of fhrs.Client the archive needs.
type Fetcher interface {
	FetchDocument(ctx context.Context, url string, opts fhrs.RequestOptions) (string, error)
	FetchReferenceDataset(ctx context.Context, dataset fhrs.Dataset, opts fhrs.RequestOptions) (string, error)
}

type Options struct {
	Fetcher       Fetcher
	Validator     *schema.Validator
	Canonicalizer *canonical.Canonicalizer
	Store         Store
	// Authorities narrows the run to these LocalAuthorityIdCodes, all authorities are
	// archived when empty.
	Authorities []string
	Tel         telemetry.API
}

type run struct {
	Options
	tel     telemetry.API
	report  *reportBuilder
	written metric.Int64Counter
}

// Run archives everything once. Failures of single files are recorded in the report and
// do not stop the run. The returned error is set when the run could not complete: the
// authority list was unusable, a document exhausted its retries, or ctx was cancelled.
func Run(ctx context.Context, opts Options) (Report, error) {
	assert.NotNil(opts.Fetcher)
	assert.NotNil(opts.Validator)
	assert.NotNil(opts.Canonicalizer)
	assert.NotNil(opts.Store)
	assert.NotNil(opts.Tel)

	written, err := meter.Int64Counter(
		"fhrs_archive.documents",
		metric.WithDescription("Documents written to the archive."),
	)
	if err != nil {
		return Report{}, err
	}

	r := &run{
		Options: opts,
		tel:     telemetry.NewScopedAPI("archive", opts.Tel),
		report:  &reportBuilder{},
		written: written,
	}

	for _, dir := range []string{ReferenceDir, DocumentDir} {
		err := opts.Store.Ensure(dir)
		if err != nil {
			return Report{}, fmt.Errorf("prepare %s: %w", dir, err)
		}
	}

	authoritiesRaw, err := r.archiveReference(ctx)
	if err != nil {
		return r.report.report(), err
	}
	authorities, err := r.authorities(authoritiesRaw)
	if err != nil {
		return r.report.report(), err
	}

	var wg sync.WaitGroup
	errs := make([]error, len(authorities))
	for i, authority := range authorities {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = r.archiveAuthority(ctx, authority)
		}()
	}
	wg.Wait()

	report := r.report.report()
	r.tel.ReportCount(report_archive_written, int64(report.Count(OutcomeWritten)+report.Count(OutcomeRaw)))

	if ctx.Err() != nil {
		errs = append(errs, ctx.Err())
	}
	return report, errors.Join(errs...)
}

// archiveReference stores every reference dataset and returns the English JSON authority
// list. Datasets are fetched one at a time, the client paces them.
func (r *run) archiveReference(ctx context.Context) ([]byte, error) {
	var authorities []byte
	var authoritiesErr error

	for _, dataset := range fhrs.Datasets {
		for _, lang := range fhrs.Languages {
			for _, format := range fhrs.Formats {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}

				entry := Entry{
					Dir:      ReferenceDir,
					Name:     fmt.Sprintf("%s-%s.%s", dataset, lang, format),
					Format:   format,
					Language: lang,
				}
				start := time.Now()
				payload, err := r.Fetcher.FetchReferenceDataset(ctx, dataset, fhrs.RequestOptions{Language: lang, Format: format})
				if err == nil {
					err = r.Store.Write(entry.Dir, entry.Name, []byte(payload))
				}
				entry.Duration = time.Since(start)

				if dataset == fhrs.Authorities && lang == fhrs.English && format == fhrs.JSON {
					authorities = []byte(payload)
					authoritiesErr = err
				}

				if err != nil {
					entry.Outcome = OutcomeFailed
					entry.Err = err
					r.tel.ReportWarning(report_archive_reference, err, entry.Path())
				} else {
					entry.Outcome = OutcomeWritten
					r.written.Add(ctx, 1, metric.WithAttributes(
						attribute.String("kind", "reference"),
						attribute.String("format", string(format)),
					))
				}
				r.report.add(entry)
			}
		}
	}

	if authoritiesErr != nil {
		return nil, fmt.Errorf("authority list: %w", authoritiesErr)
	}
	return authorities, nil
}

func (r *run) authorities(raw []byte) ([]fhrs.Authority, error) {
	_, err := r.Validator.Validate(schema.KindAuthorities, raw)
	if err != nil {
		r.tel.ReportBroken(report_archive_reference, err)
		return nil, fmt.Errorf("authority list: %w", err)
	}
	authorities, err := fhrs.ParseAuthorities(raw)
	if err != nil {
		r.tel.ReportBroken(report_archive_reference, err)
		return nil, fmt.Errorf("authority list: %w", err)
	}
	if len(r.Authorities) == 0 {
		return authorities, nil
	}

	var selected []fhrs.Authority
	for _, a := range authorities {
		if slices.Contains(r.Authorities, a.LocalAuthorityIdCode) {
			selected = append(selected, a)
		}
	}
	for _, code := range r.Authorities {
		found := slices.ContainsFunc(selected, func(a fhrs.Authority) bool {
			return a.LocalAuthorityIdCode == code
		})
		if !found {
			r.tel.ReportWarning(report_archive_reference, fmt.Errorf("unknown authority %q", code))
		}
	}
	return selected, nil
}

// archiveAuthority fetches an authority's documents in order. A terminal fetch failure
// stops the remaining documents of this authority and is returned.
func (r *run) archiveAuthority(ctx context.Context, authority fhrs.Authority) error {
	docs := authority.Documents()
	for i, doc := range docs {
		err := r.archiveDocument(ctx, authority, doc)
		if fhrs.IsTerminal(err) {
			for _, rest := range docs[i+1:] {
				r.report.add(Entry{
					Authority: authority.LocalAuthorityIdCode,
					Dir:       DocumentDir,
					Name:      rest.FileName(),
					Url:       rest.Url,
					Format:    rest.Format,
					Language:  rest.Language,
					Outcome:   OutcomeSkipped,
				})
			}
			return fmt.Errorf("%s: %w", authority.Name, err)
		}
	}
	return nil
}

func (r *run) archiveDocument(ctx context.Context, authority fhrs.Authority, doc fhrs.DocumentRef) error {
	ctx, span := tracer.Start(ctx, "archive.document")
	defer span.End()
	span.SetAttributes(
		attribute.String("authority", authority.LocalAuthorityIdCode),
		attribute.String("url", doc.Url),
	)

	entry := Entry{
		Authority: authority.LocalAuthorityIdCode,
		Dir:       DocumentDir,
		Name:      doc.FileName(),
		Url:       doc.Url,
		Format:    doc.Format,
		Language:  doc.Language,
		Outcome:   OutcomeWritten,
	}
	start := time.Now()
	defer func() {
		entry.Duration = time.Since(start)
		r.report.add(entry)
	}()

	fail := func(err error) error {
		entry.Outcome = OutcomeFailed
		entry.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "archive document")
		r.tel.ReportWarning(report_archive_document, err, entry.Path())
		return err
	}

	raw, err := r.Fetcher.FetchDocument(ctx, doc.Url, fhrs.RequestOptions{Language: doc.Language, Format: doc.Format})
	if err != nil {
		return fail(err)
	}

	var contents string
	switch doc.Format {
	case fhrs.JSON:
		contents, err = r.Canonicalizer.JSON(raw)
		if err != nil {
			return fail(err)
		}
	case fhrs.XML:
		contents, err = r.Canonicalizer.TryXML(raw)
		if err != nil {
			r.tel.ReportWarning(report_archive_document, fmt.Errorf("store as fetched: %w", err), entry.Path())
			entry.Outcome = OutcomeRaw
			entry.Err = err
			contents = raw
		}
	default:
		return fail(fmt.Errorf("unsupported document format %q", doc.Format))
	}

	err = r.Store.Write(entry.Dir, entry.Name, []byte(contents))
	if err != nil {
		return fail(err)
	}
	r.written.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", "establishments"),
		attribute.String("format", string(doc.Format)),
	))
	return nil
}
