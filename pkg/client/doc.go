// Package client is the Go SDK for the SAP Change Management OData service.
//
// It covers exactly the operations CI pipelines need: reading a change and
// its transports, creating and releasing transports, and attaching files to
// a transport.
//
// # Connecting
//
// Construct one client per job or command with the service root and the
// technical user's credentials:
//
//	c, err := client.New(
//	    "https://cm.example.com/sap/opu/odata/SAP/AI_CRM_GW_CM_CI_SRV",
//	    user, password,
//	    client.WithTimeout(30*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Reading
//
//	change, err := c.GetChange(ctx, "8000038673")
//	fmt.Println(change.IsInDevelopment)
//
//	transports, err := c.GetChangeTransports(ctx, "8000038673")
//	for _, t := range transports {
//	    fmt.Println(t.TransportID)
//	}
//
// Large change listings can be consumed page by page with
// IterChangeTransports; pages are only requested as the iterator advances.
//
// # Mutating
//
//	t, err := c.CreateTransportAdvanced(ctx, "8000038673", "hotfix", "ALICE")
//	err = c.ReleaseTransport(ctx, "8000038673", t.TransportID)
//	err = c.UploadFile(ctx, t.TransportID, "target/app.mtar", "HCP")
//
// Uploads fetch a CSRF token from the service metadata before the PUT; the
// token is not reused across calls.
//
// # Errors
//
// Failures are classified by sentinel errors that callers match with
// errors.Is: ErrInvalidArgument (nothing was sent), ErrConsistency,
// ErrProtocol, ErrTransport and ErrIO. An unexpected HTTP status is
// reported as *StatusError carrying the raw response body.
//
// # String literals
//
// Identifiers are embedded into OData literals verbatim by default, as the
// service has always received them. WithStrictLiterals doubles embedded
// quotes and percent-encodes query delimiters instead.
package client
