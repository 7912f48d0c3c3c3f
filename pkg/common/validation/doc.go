// Package validation provides common validation utilities for configuration
// parameters across queuestat.
//
// Every validator returns a *errors.ValidationError carrying the module and
// field names, so configuration loaders can report all problems in the same
// format.
package validation
