// Package model defines the data shared by the mocha packages: saved requests and folders,
// collections, environments, users and organizations.
package model
