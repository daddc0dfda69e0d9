// Package usgs resolves USGS monitoring-station IDs to their latest
// streamflow reading via the water-data OGC API.
//
// Two resilience layers are kept deliberately separate: the retrying
// transport (transport.go) handles transient 5xx responses on a single
// credential, while Client.Fetch fails over across the credential set on
// rate-limit rejections and other request failures. Each layer is
// configured and tested independently.
package usgs
