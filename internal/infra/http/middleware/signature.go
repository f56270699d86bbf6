package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/makerstokyo/api/pkg/apierror"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/signature"
)

// Signature request headers.
const (
	HeaderSignature          = "X-Signature"
	HeaderSignatureTimestamp = "X-Signature-Timestamp"
)

// RequireSignature accepts only requests whose raw body carries a fresh timed
// signature: X-Signature is base64 HMAC-SHA256 of "body:timestamp" and
// X-Signature-Timestamp is the signing time in Unix milliseconds. The body is
// restored for the next handler.
func RequireSignature(signer *signature.Signer, log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			var body []byte
			if r.Body != nil {
				b, err := io.ReadAll(r.Body)
				_ = r.Body.Close()
				if err != nil {
					if IsBodyTooLarge(err) {
						apierror.PayloadTooLarge().WriteJSONWithRequestID(w, requestID)
						return
					}
					apierror.BadRequest("Unable to read request body").WriteJSONWithRequestID(w, requestID)
					return
				}
				body = b
			}

			err := signer.CheckTimedHeader(string(body),
				r.Header.Get(HeaderSignature),
				r.Header.Get(HeaderSignatureTimestamp),
			)
			if err != nil {
				RecordGuardDecision(GuardSignature, OutcomeRejected)
				log.WithContext(r.Context()).Warn("request signature rejected",
					"reason", err.Error(),
					"path", r.URL.Path,
				)
				apierror.InvalidSignature(err).WriteJSONWithRequestID(w, requestID)
				return
			}

			RecordGuardDecision(GuardSignature, OutcomeAllowed)
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			next.ServeHTTP(w, r)
		})
	}
}
