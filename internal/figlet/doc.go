// Package figlet provides an HTTP implementation of domain.FigletClient.
//
// The service takes the text as a query parameter and answers with the
// rendered ASCII art as the plain response body. Requests accept a context
// for cancellation and deadlines. Non-2xx statuses are returned as errors
// carrying the status text.
package figlet
