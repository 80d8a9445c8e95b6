package services

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"

	"github.com/desertthunder/qcat/internal/models"
)

// Sign computes the request signature for a stream URL lookup.
//
// The canonical string is "trackgetFileUrl" "format_id" quality "intent" "stream" "track_id"
// trackID now secret with no separators. The same now must be sent as request_ts.
func Sign(trackID int64, quality models.Quality, secret string, now int64) models.SignedRequest {
	canonical := "trackgetFileUrl" +
		"format_id" + string(quality) +
		"intent" + "stream" +
		"track_id" + strconv.FormatInt(trackID, 10) +
		strconv.FormatInt(now, 10) +
		secret

	sum := md5.Sum([]byte(canonical))
	return models.SignedRequest{Timestamp: now, Signature: hex.EncodeToString(sum[:])}
}
