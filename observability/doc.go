// Package observability provides an extension that records jobwatch
// lifecycle metrics through the OpenTelemetry metric API.
package observability
