// Package httpapi serves the records API under /api/v1:
//
//	POST   /auth/register            create an account
//	POST   /auth/login               exchange credentials for a bearer token
//	GET    /records/{type}           every record of a type, tombstones included
//	POST   /records/{type}           create
//	GET    /records/{type}/{id}
//	PUT    /records/{type}/{id}      replace
//	PATCH  /records/{type}/{id}      merge top-level fields into the body
//	DELETE /records/{type}/{id}      leave a tombstone
//	POST   /photos/{id}/upload-url   presigned PUT target for a photo file
//
// Record routes need "Authorization: Bearer <token>". Errors are
// {"error": "..."} with 400, 401, 404, 409 or 500.
package httpapi
