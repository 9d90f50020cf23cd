package common

// AuthorizationHeaderName carries the bearer access token on inbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the expected scheme prefix of the Authorization header.
const BearerScheme = "Bearer"

// Pagination defaults applied when the caller omits page or limit.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)
