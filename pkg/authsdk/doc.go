// Package authsdk is the Go client for the authentication service. It
// holds the wire types shared between the server handlers and consumers,
// the error envelope, and a small HTTP client covering every login flow:
// password, password plus authenticator challenge, emailed one-time code,
// and password reset.
//
// Unauthenticated flows hang off Client; once a login succeeds, Session
// wraps the bearer token for the device, enrollment and history endpoints.
//
//	client := authsdk.NewClient("https://auth.internal")
//	out, err := client.Login(ctx, "alice@example.com", password)
//	if err != nil { ... }
//	if out.Challenge != nil {
//		out, err = client.CompleteChallenge(ctx, out.Challenge.ChallengeToken, code)
//	}
//	session := client.Session(out.Session.Token)
//	devices, err := session.Devices(ctx)
package authsdk
