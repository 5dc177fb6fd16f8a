// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (state and events) and contracts (interfaces) only.
package domain
