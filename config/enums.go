package config

//go:generate go run github.com/abice/go-enum@v0.9.2 --marshal --names --nocase

// Specification of url() rewriting mode.
// ENUM(relative, absolute)
type RewriteMode int
