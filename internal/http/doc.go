// Package http provides the HTTP client used to submit archive jobs to nodes.
//
// This package handles:
//   - JSON POST requests with Content-Type: application/json
//   - Status classification into *StatusError with a truncated body snippet
//   - Recognizing ZIP / binary content types
//
// Requests are never retried. Cancellation comes from the caller's context.
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	resp, err := client.PostJSON(ctx, base+"/api/catalina", body)
//	if err != nil {
//	    var se *http.StatusError
//	    if errors.As(err, &se) {
//	        // se.Code, se.Snippet
//	    }
//	    return err
//	}
//	defer resp.Body.Close()
package http
