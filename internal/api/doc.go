// Package api defines request and response types for the HTTP API and the
// services behind each endpoint. It translates stored records and progress
// into transport payloads so the daemon's handlers stay thin.
//
// # Key Types
//
// RecordService: list, describe, title selection, manual and automatic
// scheduling, and removal of job records.
//
// UploadService: accepts an upload, seeds its progress, and submits the job.
//
// DaemonStatus: aggregated runtime information including job counts,
// dependency checks, and stage health.
//
// # Design Notes
//
// Request bodies are checked with go-playground/validator before any store is
// touched; failures carry services.ErrValidation so handlers can map them to
// 400 responses. JSON field names use snake_case to match the stored records.
package api
