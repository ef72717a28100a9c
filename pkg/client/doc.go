// Package client provides a typed HTTP client for the ringside sidecar API.
//
// The sidecars themselves use it to talk to their ring peers (status polling
// at the start barrier, kill and finish signal fan-out), and operator tooling
// uses it to drive queries from the outside.
//
// # Quick Start
//
// Create a client against a sidecar and start a coordinator query:
//
//	c, err := client.New(client.Config{BaseURL: "http://localhost:17440"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	id, err := c.StartCoordinatorQuery(ctx, "my-query-id", client.CoordinatorQueryRequest{
//	    CommitHash:       "0b9abe0",
//	    Size:             1000,
//	    MaxBreakdownKey:  3,
//	    MaxTriggerValue:  7,
//	    PerUserCreditCap: 8,
//	})
//
//	// Poll it and stream its log.
//	st, _ := c.Status(ctx, id)
//	rc, _ := c.Logs(ctx, id)
//	defer rc.Close()
//
// Status lookups return the answered status payload even for unknown IDs
// (Status NOT_FOUND); the error return is reserved for transport and
// decoding failures.
package client
