package types

import (
	"github.com/kjanat/gpg-signing-service/domain/audit"
	"github.com/kjanat/gpg-signing-service/domain/keystore"
)

type HealthChecks struct {
	KeyStorage string `json:"keyStorage"`
	Database   string `json:"database"`
}

type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp string       `json:"timestamp"`
	Version   string       `json:"version"`
	Checks    HealthChecks `json:"checks"`
}

type PublicKeyRequest struct {
	KeyID string `form:"keyId,optional"`
}

type SignRequest struct {
	KeyID string `form:"keyId,optional"`
}

// SignResponse carries the signature plus the rate-limit headers' values;
// the body itself is written as text/plain.
type SignResponse struct {
	Signature string
	KeyID     string
	Remaining int
	ResetAt   int64
}

type UploadKeyRequest struct {
	ArmoredPrivateKey string `json:"armoredPrivateKey"`
	KeyID             string `json:"keyId"`
}

type UploadKeyResponse struct {
	Success     bool   `json:"success"`
	KeyID       string `json:"keyId"`
	Fingerprint string `json:"fingerprint"`
	Algorithm   string `json:"algorithm"`
	UserID      string `json:"userId"`
}

type ListKeysResponse struct {
	Keys []keystore.KeyMetadata `json:"keys"`
}

type KeyPathRequest struct {
	KeyID string `path:"keyId"`
}

type DeleteKeyResponse struct {
	Success bool `json:"success"`
	Deleted bool `json:"deleted"`
}

type AuditQueryRequest struct {
	Limit     int    `form:"limit,default=100"`
	Offset    int    `form:"offset,default=0"`
	Action    string `form:"action,optional"`
	Subject   string `form:"subject,optional"`
	StartDate string `form:"startDate,optional"`
	EndDate   string `form:"endDate,optional"`
}

type AuditQueryResponse struct {
	Logs  []audit.Record `json:"logs"`
	Count int            `json:"count"`
}

type AuditSearchRequest struct {
	Q     string `form:"q"`
	Limit int    `form:"limit,default=20"`
}

type AuditSearchResponse struct {
	Hits  []map[string]interface{} `json:"hits"`
	Count int                      `json:"count"`
}

type ResetRateLimitRequest struct {
	Identity string `path:"identity"`
}

type ResetRateLimitResponse struct {
	Success bool `json:"success"`
	Reset   bool `json:"reset"`
}
