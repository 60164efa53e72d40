// Package handler implements the HTTP layer of the dsla record ledger.
//
// # Endpoints
//
//	GET  /                       liveness message
//	POST /check-duplicates       label a batch New or Duplicate
//	POST /insert-new             insert the batch records not yet stored
//	POST /check-duplicate        full-document equality check
//	POST /insert-document        store one document verbatim
//	POST /process-data           store a raw input string
//	GET  /get-knowledge-objects  dump every stored document
//
// Batch bodies carry the identifying field under its wire name (for the repo
// schema "GitHub_Repo_Name"); Handler maps it onto the stored field name
// before calling the services.
//
// # Errors
//
// Every failure, whatever its cause, is answered with HTTP 500 and a
// {"detail": "..."} body.
//
// Middleware (Chain, Recover, CORS, Logger, Tracing) wraps the mux in the
// server command.
package handler
