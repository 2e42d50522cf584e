package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/i-bosquet/petconnect-sub002"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Certificate issuance metrics
	CertificatesIssuedTotal  metric.Int64Counter
	CertificateIssueFailures metric.Int64Counter
	CertificateIssueDuration metric.Float64Histogram
	IssueStageDuration       metric.Float64Histogram
	QRTokensEncodedTotal     metric.Int64Counter

	// Medical record metrics
	RecordsCreatedTotal metric.Int64Counter
	RecordsSignedTotal  metric.Int64Counter

	// Eligibility metrics
	EligibilityChecksTotal metric.Int64Counter
	EligibilityDeniedTotal metric.Int64Counter

	// Event metrics
	EventsPublishedTotal    metric.Int64Counter
	EventPublishErrorsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.CertificatesIssuedTotal, _ = meter.Int64Counter(
		"petconnect.certificates.issued.total",
		metric.WithDescription("Total number of health certificates issued"),
		metric.WithUnit("{certificate}"),
	)

	m.CertificateIssueFailures, _ = meter.Int64Counter(
		"petconnect.certificates.issue_failures.total",
		metric.WithDescription("Total number of failed certificate issuance attempts"),
		metric.WithUnit("{attempt}"),
	)

	m.CertificateIssueDuration, _ = meter.Float64Histogram(
		"petconnect.certificates.issue.duration",
		metric.WithDescription("End-to-end duration of certificate issuance"),
		metric.WithUnit("ms"),
	)

	m.IssueStageDuration, _ = meter.Float64Histogram(
		"petconnect.certificates.issue.stage.duration",
		metric.WithDescription("Duration of each certificate issuance stage"),
		metric.WithUnit("ms"),
	)

	m.QRTokensEncodedTotal, _ = meter.Int64Counter(
		"petconnect.certificates.qr_tokens.total",
		metric.WithDescription("Total number of QR tokens encoded"),
		metric.WithUnit("{token}"),
	)

	m.RecordsCreatedTotal, _ = meter.Int64Counter(
		"petconnect.records.created.total",
		metric.WithDescription("Total number of medical records created"),
		metric.WithUnit("{record}"),
	)

	m.RecordsSignedTotal, _ = meter.Int64Counter(
		"petconnect.records.signed.total",
		metric.WithDescription("Total number of medical records signed at creation"),
		metric.WithUnit("{record}"),
	)

	m.EligibilityChecksTotal, _ = meter.Int64Counter(
		"petconnect.eligibility.checks.total",
		metric.WithDescription("Total number of certificate eligibility checks"),
		metric.WithUnit("{check}"),
	)

	m.EligibilityDeniedTotal, _ = meter.Int64Counter(
		"petconnect.eligibility.denied.total",
		metric.WithDescription("Total number of eligibility checks that failed a requirement"),
		metric.WithUnit("{check}"),
	)

	m.EventsPublishedTotal, _ = meter.Int64Counter(
		"petconnect.events.published.total",
		metric.WithDescription("Total number of domain events published"),
		metric.WithUnit("{event}"),
	)

	m.EventPublishErrorsTotal, _ = meter.Int64Counter(
		"petconnect.events.publish_errors.total",
		metric.WithDescription("Total number of domain event publish failures"),
		metric.WithUnit("{error}"),
	)

	return m
}
