package domain

// Verification purposes. One row per (email, purpose) pair.
const (
	// PurposeCode is a pending verification code awaiting submission.
	PurposeCode = "code"
	// PurposeVerified marks an email that passed code verification; it gates
	// exactly one account creation.
	PurposeVerified = "verified"
	// PurposeResetVerified is an audit marker left behind by a completed
	// password reset. Nothing consumes it.
	PurposeResetVerified = "reset_verified"
)

// EmailVerification is one row of the short-lived verification store.
// PK: email, SK: purpose. ExpiresAt is a Unix timestamp used as the
// DynamoDB TTL; TTL deletion is lazy, so readers must treat an
// expired-but-present row as absent.
type EmailVerification struct {
	Email     string `json:"email" dynamodbav:"email"`
	Purpose   string `json:"purpose" dynamodbav:"purpose"`
	Code      string `json:"code" dynamodbav:"code"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}
