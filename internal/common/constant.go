package common

// AuthorizationHeader carries "Bearer <jwt>" on API requests.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the token in AuthorizationHeader.
const BearerPrefix = "Bearer "

// DeviceOriginPrefix marks origin identifiers minted by a client device.
const DeviceOriginPrefix = "device:"
