// Package migrations holds the blog app's migrations.
package migrations
