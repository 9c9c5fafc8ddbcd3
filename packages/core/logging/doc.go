// Package logging builds the structured logger shared by the client packages.
package logging
