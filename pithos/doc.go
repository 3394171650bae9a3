// Package pithos is a client for the Pithos object storage protocol, a
// Swift style REST API that stores objects in containers owned by accounts.
//
// Every call is expressed as an Operation, turned into an HTTP request by
// BuildRequest, sent through a Transport and decoded by MapResponse into a
// Result or an *Error whose Kind classifies the failure:
//
//	client, err := pithos.New(
//		utils.WithBaseURL("https://pithos.example.org/object-store/v1"),
//		utils.WithUserID("user@example.org"),
//		utils.WithUserToken(token),
//	)
//	if err != nil {
//		return err
//	}
//	res, err := client.GetObject(ctx, "pithos", "photos/cat.jpg", nil)
//	if pithos.IsNotFound(err) {
//		// ...
//	}
//	caption, _ := res.Meta.Get("Caption")
//
// Listings requested with FormatJSON or FormatXML are decoded into
// Result.Containers or Result.Objects. Without a format the plain text body
// is kept and Result.Names splits it.
//
// A Client is safe for concurrent use. Submit runs an operation in its own
// goroutine and returns a Future.
package pithos
