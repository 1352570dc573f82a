// Package services contains the client's application services: device
// identity, the account session, local record editing with change journaling
// and exporting shares for scanning by another device.
package services
