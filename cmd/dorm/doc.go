// Command dorm is the global dorm CLI.
//
// Install once:
//
//	go install github.com/shashiranjanraj/dorm/cmd/dorm@latest
//
// Then, from a project directory:
//
//	dorm init               # write settings.hcl
//	dorm makemigrations     # scaffold migrations for installed apps
//	dorm migrate            # apply them
//	dorm help --commands    # list every subcommand
//
// init and help run inside this binary. Every other subcommand needs the
// project's apps, which register from the project's own packages, so inside
// a Go module dorm runs `go run <entrypoint> <subcommand>` in the project
// root. The entrypoint is the first directory among ".", "cmd/dorm",
// "cmd/manage", "cmd/server", "cmd/app", "cmd/main", "main" and "cmd" that
// holds Go files, and its main.go only needs:
//
//	import "github.com/shashiranjanraj/dorm/pkg/dorm"
//	func main() { dorm.Main() }
//
// Pass --no-delegate, or set DORM_NO_DELEGATE=1, to run everything in this
// process.
package main
