package auth

import (
	"github.com/nmviana/vendimia-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	SubjectID uuid.UUID
	VendorID  *uuid.UUID
	Role      enums.ActorRole
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to callers. Vendor
// tokens carry the vendor they are scoped to; admin and system tokens
// leave it empty.
type AccessTokenClaims struct {
	SubjectID uuid.UUID       `json:"subject_id"`
	VendorID  *uuid.UUID      `json:"vendor_id,omitempty"`
	Role      enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
