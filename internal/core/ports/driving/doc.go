// Package driving provides interfaces for the services exposed to the
// business layer (primary/inbound ports): document indexing and querying.
package driving
