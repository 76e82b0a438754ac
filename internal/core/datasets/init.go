// Package datasets registers every ingestible dataset with the core registry.
// Import it for side effects wherever datasets must be available.
package datasets

// Each dataset file registers itself from init().
