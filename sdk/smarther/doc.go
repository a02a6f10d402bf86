// Package smarther is a client for the Legrand/BTicino Smarther v2.0 cloud
// API, covering the OAuth authorization-code handshake, token persistence and
// refresh, and the chronothermostat device operations.
//
// The package separates the two phases of a session by type. A Client can
// only authorize:
//
//	client, _ := smarther.NewClient()
//	info, err := client.Login(ctx, creds, nil)
//
// Device operations live on the AuthorizedClient obtained by resuming from
// persisted authorization material:
//
//	authorized, err := client.Resume(ctx, info)
//	plants, err := authorized.GetPlants(ctx)
//
// The AuthorizedClient refreshes its access token transparently when it
// expires and keeps the refreshed material available through
// AuthorizationInfo for the caller to persist.
package smarther
