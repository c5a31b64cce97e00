// Package main rolloutd deployment orchestrator API
//
//	@title			rolloutd API
//	@version		1.0.0
//	@description	rolloutd is a deployment lifecycle orchestrator
//
//	@host			localhost:3000
//	@BasePath		/api/v1
package main

import "github.com/rolloutd/rolloutd/internal"

//go:generate swag init --parseDependency --outputTypes go -g ./main.go -o ./internal/server/docs

func main() {
	internal.Run()
}
