// Package app wires portalctl together.
//
// NewApplication performs the bootstrap sequence every command relies on:
//
//  1. Load config.yaml (plus .env and PORTAL_* overrides) from the config directory
//  2. Initialize logging on stderr with the configured level and format
//  3. Open the credential store (file, memory or redis)
//  4. Create the session and load any stored credentials
//  5. Create the refresh coordinator, using an unauthenticated portal client
//     for the token endpoints
//  6. Create the portal client whose HTTP transport attaches the access
//     token and recovers from 401 responses through the coordinator
//
// Example:
//
//	application, err := app.NewApplication(ctx, app.NewConfig(configPath, logLevel))
//	if err != nil {
//	    return err
//	}
//	defer application.Close()
//	clients, err := application.Services().Client.ListClients(ctx)
package app
