package app

import (
	"expvar"
	"strings"

	"stakenode/internal/types"
)

var (
	metricAccepted  = expvar.NewInt("intake_accepted_total")
	metricDuplicate = expvar.NewInt("intake_duplicate_total")
	metricRejected  = expvar.NewInt("intake_rejected_total")
	metricMalformed = expvar.NewInt("intake_malformed_total")
)

func countStatus(status string) {
	switch {
	case status == types.StatusAccepted:
		metricAccepted.Add(1)
	case status == types.StatusDuplicate:
		metricDuplicate.Add(1)
	case strings.HasPrefix(status, "rejected:"):
		metricRejected.Add(1)
	default:
		metricMalformed.Add(1)
	}
}
