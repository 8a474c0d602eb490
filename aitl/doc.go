// Package aitl provides a client for the Azure Image Testing for Linux (AITL) API.
//
// AITL runs test suites against Linux VM images. Users submit test jobs, each
// created from a job template, and query their status. This package implements
// the request/response layer used by the aitl command.
//
// # Architecture
//
// The package is organized into several components:
//
//   - Builder: Turns operation parameter structs into request descriptors, validating input
//   - Transport: Executes descriptors with authentication, timeouts, retry and rate limiting
//   - Interpreter: Classifies responses and decodes jobs and templates
//   - Walker: Lazily follows nextLink cursors across collection pages
//   - Client: One method per operation, wiring the above together
//
// # Usage
//
//	creds, err := aitl.NewCredentials(token)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := aitl.NewClient(
//		aitl.DefaultEndpoint,
//		creds,
//		aitl.Scope{SubscriptionID: "sub", ResourceGroup: "rg"},
//		logger,
//		aitl.WithTimeout(30*time.Second),
//		aitl.WithMaxAttempts(3),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for job, err := range client.ListJobs(ctx, aitl.ListJobs{}) {
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(job.Name, job.Status)
//	}
//
// # Error Handling
//
// Every failure is an *Error tagged with one of four kinds:
//
//   - KindValidation: Bad local input, nothing was sent
//   - KindTransport: Network failure, timeout or cancellation
//   - KindAPI: An error response from the service
//   - KindProtocol: A response that breaks the expected contract
//
// Use KindOf, IsRetryable and IsNotFound to branch on them:
//
//	if aitl.IsNotFound(err) {
//		// Handle missing job
//	}
package aitl
