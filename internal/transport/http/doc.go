// Package http implements the HTTP handlers for the salesight web service.
// Handlers stay thin: they parse and validate the request, delegate to the
// service layer, and translate service errors into structured API responses.
package http
