package middleware

import (
	"net/http"

	"github.com/makerstokyo/api/pkg/apierror"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/origin"
)

// RequireOrigin rejects requests whose Origin, or Referer origin when Origin
// is absent, is not on the guard's allow-list.
func RequireOrigin(guard *origin.Guard, log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, claimed := guard.Check(r)
			if !ok {
				RecordGuardDecision(GuardOrigin, OutcomeRejected)
				log.WithContext(r.Context()).Warn("origin rejected",
					"origin", claimed,
					"site", origin.Site(claimed),
					"path", r.URL.Path,
				)
				apierror.InvalidOrigin().WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}

			RecordGuardDecision(GuardOrigin, OutcomeAllowed)
			next.ServeHTTP(w, r)
		})
	}
}
