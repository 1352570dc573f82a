// Package exchange moves boats, trips and crew handshakes between devices
// without a server. A share payload is JSON, base64 encoded, split into
// bounded fragments and wrapped in envelopes small enough for one QR code
// each. The receiving side parses scanned chunks, feeds them to an
// Assembler and decodes the completed payload into a typed share.
//
// Envelope wire format:
//
//	{"version":1,"type":"trip","id":"…","part":1,"total":3,
//	 "generatedAt":"2024-06-01T08:00:00Z","data":"<base64 fragment>"}
package exchange
