// Package main is a minimal project using dorm without an application server.
//
//	cd example
//	go run . migrate
//	go run . showmigrations
//	go run . dumpdata blog
package main

import (
	"github.com/shashiranjanraj/dorm/pkg/dorm"

	_ "github.com/shashiranjanraj/dorm/example/blog"
	_ "github.com/shashiranjanraj/dorm/example/blog/migrations"
)

func main() { dorm.Main() }
