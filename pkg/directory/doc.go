// Package directory provides UserDirectory implementations for deployments
// without an external user service: an in-memory directory and one loaded
// from a JSON file.
//
// The file holds an array of users:
//
//	[
//	  {"id": "user-a", "email": "a@example.com"},
//	  {"id": "user-b", "phone": "+15551234567", "mfa_method": "sms"}
//	]
package directory
