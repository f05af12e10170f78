// Package app contains the core application logic. It loads a role schema
// and optional seed records into a list model and then serves, dumps or
// watches it, decoupled from any specific entrypoint like a CLI.
package app
