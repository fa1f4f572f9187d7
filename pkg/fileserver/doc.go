// Package fileserver implements the DittoFM HTTP file manager protocol.
//
// The server exposes two subtrees of a Store over plain HTTP verbs:
//
//	GET    stat the path; list a directory, stream a public asset or
//	       stream a content file wrapped in a JSON descriptor
//	PUT    write the request body to the path (create or overwrite)
//	DELETE remove the path (recursively for directories), idempotent
//	MKCOL  create a directory, idempotent
//	POST   with X-Request-Stats-Is-Directory-From-Path, report whether the
//	       path is a "directory" or a "file"
//
// Directory listings and content files are answered with a JSON descriptor:
//
//	{"type": "directory", "value": "a.txt\nsub"}
//	{"type": "file", "value": "file text"}
//
// Requests are confined to the content and public roots below the base
// directory by the Resolver. The base directory itself maps to the entry
// document public/index.html.
//
// Architecture:
//
//	Gateway (http.Handler) -> HandlerFunc (one per verb) -> Resolver + store.Store
//
// Handlers never write to the http.ResponseWriter. They return a Response
// descriptor, or an error that the Gateway normalizes into one.
package fileserver
