package delta

import "github.com/prometheus/client_golang/prometheus"

var SavingsRatio = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "docsync",
	Subsystem: "delta",
	Name:      "savings_ratio",
	Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
})

// Savings compares serialized delta size against a full-payload transfer.
type Savings struct {
	DeltaSize   int
	FullSize    int
	Ratio       float64
	Recommended bool
}

// CalculateSavings is a pure decision helper for the transport layer:
// delta transmission is recommended only while the serialized delta stays
// below MaxDeltaRatio of the full payload size.
func CalculateSavings(ops []Op, fullSize int, opts *Options) Savings {
	o := defaulted(opts)
	s := Savings{DeltaSize: len(Serialize(ops)), FullSize: fullSize, Ratio: 1}
	if fullSize > 0 {
		s.Ratio = float64(s.DeltaSize) / float64(fullSize)
	}
	s.Recommended = s.Ratio < o.MaxDeltaRatio
	SavingsRatio.Observe(s.Ratio)
	return s
}

// Efficient reports whether sending the delta beats resending the payload.
func Efficient(ops []Op, fullSize int, opts *Options) bool {
	return CalculateSavings(ops, fullSize, opts).Recommended
}
