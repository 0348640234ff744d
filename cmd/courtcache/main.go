// Package main provides the courtcache command: the HTTP API server and
// command-line access to the same lookup service.
package main

func main() {
	Execute()
}
