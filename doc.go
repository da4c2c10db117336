// Package main provides the entry point for the vobridge service.
// vobridge authenticates users against a VereinOnline membership
// directory and maintains a local identity mirror so the host
// platform's sharing and permission model keeps working across logins.
// It ships a daemon with a JSON admin API, a nightly profile sync,
// and one-shot CLI commands for bulk sync, duplicate scanning and
// member-id discovery.
package main
