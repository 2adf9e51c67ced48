package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT. Tokens
// are issued by the identity collaborator; this service mostly parses them.
type AccessTokenPayload struct {
	UserID uuid.UUID
	ShopID *uuid.UUID
	Role   enums.ActorRole
}

// AccessTokenClaims represents the typed JWT presented by clients. ShopID is
// set only for seller tokens and identifies the shop the seller operates.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	ShopID *uuid.UUID      `json:"shop_id,omitempty"`
	Role   enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
