// Package docerr defines the two error kinds returned by the repository layer,
// ConfigurationError and StoreError, and classifies raw store failures.
package docerr
