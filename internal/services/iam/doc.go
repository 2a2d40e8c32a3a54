// Package iam resolves verified bearer tokens into request-scoped security
// contexts.
//
// A resolution runs synchronously inside the request:
//
//	Authentication → AdaptedToken → Classify → ResolveTenant
//	       ↓
//	ContextLoader.Load (ExpirationGuard, LoginValidator, ClientGuard per variant)
//	       ↓
//	BuildSecurityContext → handlers (Authorizer, EvaluateExpression)
//
// Tenant stores and the authorized-client registry are collaborators behind
// narrow interfaces. Nothing here retries, caches across requests, or keeps
// shared mutable state; every failure is a terminal *auth.Error.
package iam
