// Package api is the client of the collections backend: authentication, user profile,
// organizations, collections, saved requests and environments.
//
// Every call carries the session bearer token when one is present. A 401 or 403 answer
// clears the session and returns ErrUnauthorized; other error statuses are returned as
// *APIError.
package api
