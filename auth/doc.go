// Package auth provides the credential checks that gate every TableDB operation.
//
// An Authenticator answers a single question: do this username and password
// grant access? Static compares against one configured pair:
//
//	authenticator := auth.Static{Username: "admin", Password: "password"}
//
// Token accepts a signed JWT in place of the password, as long as its name
// claim matches the username:
//
//	token, _ := auth.IssueToken(secret, "admin", "tabledb", time.Hour)
//	authenticator := auth.Token{Secret: secret, Issuer: "tabledb"}
//	authenticator.Check("admin", token) // true
package auth
