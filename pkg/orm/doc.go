// Package orm is the embedded ORM engine dorm bootstraps.
//
// Project app packages declare themselves from init():
//
//	package blog
//
//	func init() {
//	    orm.RegisterApp("blog", &Post{}, &Comment{})
//	}
//
// The engine then needs three things, in order: its settings holder must be
// configured, the project root must be on its search path, and Setup must
// run. Setup builds the app registry from INSTALLED_APPS, resolves each
// app's local directory through the search path and opens the database,
// cache and storage managers described by the settings.
//
// Engine.Commands exposes the engine's own command table (migrate,
// makemigrations, dumpdata and friends) for a dispatcher to wrap.
package orm
