// Package deployment provisions tenant deployments and drives their DNS
// verification.
//
// A production deployment binds a customer domain to three hostnames
// (accounts., api. and send.). Creating one runs a saga: the row and its
// default settings are inserted, the expected CNAME records are stored, two
// edge custom hostnames and one sending domain are created at the providers.
// Any failure compensates the completed steps in reverse order.
//
// Verification is re-entrant. VerifyDeploymentDNSRecords checks the stored
// record sets, stamps attempts, and advances the status from Pending to
// InProgress to Verified. Provider and resolver errors only delay progress.
//
// Staging deployments live under the platform's staging domain and are
// Verified from the start.
package deployment
