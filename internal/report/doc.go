// Package report provides the business boundary for carewatch analysis runs.
// It defines the Service (derive, summarize, persist, notify), the Store
// interface (persistence), and the report model.
package report
