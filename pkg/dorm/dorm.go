// Package dorm is what a project's own code imports to use the ORM outside
// a full application server.
//
// Standalone scripts call Setup before touching models:
//
//	func main() {
//	    if err := dorm.Setup(context.Background()); err != nil {
//	        log.Fatal(err)
//	    }
//	    db, _ := dorm.Engine().DB("default")
//	    ...
//	}
//
// A project's management entrypoint hands the command line to Main, after
// blank-importing its apps and their migrations so they register:
//
//	import (
//	    "github.com/shashiranjanraj/dorm/pkg/dorm"
//
//	    _ "example.com/mysite/blog"
//	    _ "example.com/mysite/blog/migrations"
//	)
//
//	func main() { dorm.Main() }
package dorm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shashiranjanraj/dorm/internal/cli"
	"github.com/shashiranjanraj/dorm/pkg/bootstrap"
	"github.com/shashiranjanraj/dorm/pkg/orm"
)

var boot = bootstrap.ForEngine(orm.Default)

// Engine returns the process-wide engine.
func Engine() *orm.Engine { return orm.Default }

// Setup bootstraps the project at path, or at the working directory when
// path is omitted. Calling it again, from anywhere, is a no-op.
func Setup(ctx context.Context, path ...string) error {
	p := ""
	if len(path) > 0 {
		p = path[0]
	}
	return boot.Setup(ctx, p)
}

// EnsureSetup fails with conf.ErrNotConfigured until Setup succeeded.
func EnsureSetup() error {
	return boot.EnsureSetup()
}

// Main runs the dorm command line against the project's own binary and
// exits non-zero on failure.
func Main() {
	err := cli.New(orm.Default, boot).Run(context.Background(), os.Args[1:])
	_ = orm.Default.Close()
	if err == nil {
		return
	}
	var exit *cli.ExitError
	if errors.As(err, &exit) {
		os.Exit(exit.Code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
