// Package model defines the data shapes shared across feedcore's
// read-time ranking pipeline and write-time fan-out worker.
package model

// PostID is an opaque, globally unique post identifier.
type PostID string

// UserID is an opaque, globally unique user identifier. An author is a user.
type UserID string

// Source names where a Candidate was first observed during the candidate
// generator's merge step.
type Source string

const (
	SourceSocial    Source = "social"
	SourceDiscovery Source = "discovery"
)
