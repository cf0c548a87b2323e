package carrier

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Sign computes the per-request signature the carrier expects in the RT-Sign
// header: lowercase hex sha256 of appKey + appSecret + timestamp. Timestamps
// change per call, so a signature is never reusable across requests.
func Sign(appKey, appSecret, timestamp string) string {
	sum := sha256.Sum256([]byte(appKey + appSecret + timestamp))
	return hex.EncodeToString(sum[:])
}

func requestTimestamp(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}
