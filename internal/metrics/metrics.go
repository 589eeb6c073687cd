package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prudhvinik1/medsync/internal/xerrors"
)

var (
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsync_registrations_total",
			Help: "Registration attempts by role and outcome",
		},
		[]string{"role", "outcome"},
	)

	TokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medsync_verification_tokens_issued_total",
			Help: "Verification tokens issued",
		},
	)

	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsync_verifications_total",
			Help: "Email verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsync_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	ProfileUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsync_profile_updates_total",
			Help: "Profile updates by outcome",
		},
		[]string{"outcome"},
	)

	CompensationDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsync_compensation_deletes_total",
			Help: "Best-effort object deletions run while rolling back a profile update",
		},
		[]string{"result"},
	)
)

// Outcome labels a result by its business error code, "ok" on success.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := xerrors.Code(err); code != "" {
		return code
	}
	return "error"
}
