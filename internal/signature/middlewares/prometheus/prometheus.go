package prometheus

import (
	"context"
	"time"

	"github.com/jdillenkofer/signet/internal/signature"
	"github.com/jdillenkofer/signet/internal/signing"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opCreateKeys = "CreateKeys"
	opSign       = "Sign"
	opVerify     = "Verify"

	resultValid = "valid"
)

type prometheusServiceMiddleware struct {
	failedOpsCounter     *prometheus.CounterVec
	successfulOpsCounter *prometheus.CounterVec
	verificationsCounter *prometheus.CounterVec
	opDuration           *prometheus.HistogramVec
	innerService         signature.Service
}

// Compile-time check to ensure prometheusServiceMiddleware implements signature.Service
var _ signature.Service = (*prometheusServiceMiddleware)(nil)

func NewServiceMiddleware(innerService signature.Service, registerer prometheus.Registerer) (signature.Service, error) {
	failedOpsCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signet",
			Subsystem: "signature",
			Name:      "failed_ops_total",
			Help:      "No of failed signature operations partitioned by type",
		},
		[]string{"type"},
	)

	successfulOpsCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signet",
			Subsystem: "signature",
			Name:      "successful_ops_total",
			Help:      "No of successful signature operations partitioned by type",
		},
		[]string{"type"},
	)

	verificationsCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signet",
			Subsystem: "signature",
			Name:      "verifications_total",
			Help:      "No of completed verifications partitioned by result",
		},
		[]string{"result"},
	)

	opDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signet",
			Subsystem: "signature",
			Name:      "op_duration_seconds",
			Help:      "Duration of signature operations partitioned by type",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"type"},
	)

	for _, collector := range []prometheus.Collector{failedOpsCounter, successfulOpsCounter, verificationsCounter, opDuration} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return &prometheusServiceMiddleware{
		failedOpsCounter:     failedOpsCounter,
		successfulOpsCounter: successfulOpsCounter,
		verificationsCounter: verificationsCounter,
		opDuration:           opDuration,
		innerService:         innerService,
	}, nil
}

func (psm *prometheusServiceMiddleware) observe(op string, start time.Time, err error) {
	psm.opDuration.With(prometheus.Labels{"type": op}).Observe(time.Since(start).Seconds())
	if err != nil {
		psm.failedOpsCounter.With(prometheus.Labels{"type": op}).Inc()
		return
	}
	psm.successfulOpsCounter.With(prometheus.Labels{"type": op}).Inc()
}

func (psm *prometheusServiceMiddleware) CreateKeys(ctx context.Context) (*signing.KeyPair, error) {
	start := time.Now()
	keyPair, err := psm.innerService.CreateKeys(ctx)
	psm.observe(opCreateKeys, start, err)
	return keyPair, err
}

func (psm *prometheusServiceMiddleware) Sign(ctx context.Context, req signature.SignRequest) (*signature.SignResponse, error) {
	start := time.Now()
	signed, err := psm.innerService.Sign(ctx, req)
	psm.observe(opSign, start, err)
	return signed, err
}

func (psm *prometheusServiceMiddleware) Verify(ctx context.Context, req signature.VerifyRequest) (*signature.VerifyResult, error) {
	start := time.Now()
	result, err := psm.innerService.Verify(ctx, req)
	psm.observe(opVerify, start, err)
	if err != nil {
		return nil, err
	}

	label := resultValid
	if !result.Valid {
		label = string(result.Reason)
	}
	psm.verificationsCounter.With(prometheus.Labels{"result": label}).Inc()

	return result, nil
}
