package http

import (
	"bytes"
	"crypto/hmac"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/MKhiriev/go-offline-sync/internal/app"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
)

const hashHeader = "HashSHA256"

// verifyHash checks the HashSHA256 header against the HMAC of the request
// body. It runs after gzip decoding, so the signature covers the plain body.
func (h *Handler) verifyHash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.hashKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		log := logger.FromRequest(r)

		hashFromRequest := r.Header.Get(hashHeader)
		if hashFromRequest == "" {
			log.Error().Str("func", "*Handler.verifyHash").Msg("request is not signed")
			http.Error(w, ErrMissingBodyHash.Error(), http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBatchBytes))
		if err != nil {
			log.Err(err).Str("func", "*Handler.verifyHash").Msg("failed to read request body")
			http.Error(w, app.MsgUnreadableBody, http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		hashedBody := hex.EncodeToString(utils.Hash(body))
		if !hmac.Equal([]byte(hashedBody), []byte(hashFromRequest)) {
			log.Error().Str("func", "*Handler.verifyHash").
				Str("hash from request", hashFromRequest).
				Str("hashed body", hashedBody).
				Msg("hashes are not equal")
			http.Error(w, ErrIntegrityCheckFailed.Error(), http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r)
	})
}
