// Package builder defines the gRPC protocol spoken between the buildd
// scanner and the builders (slaves) it dispatches jobs to.
package builder

//go:generate protoc --go_out=. --go_opt=paths=source_relative builder.proto
