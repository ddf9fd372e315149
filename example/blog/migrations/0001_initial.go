// Generated by dorm makemigrations on 2026-10-19 10:12.

package migrations

import (
	"gorm.io/gorm"

	blog "github.com/shashiranjanraj/dorm/example/blog"
	"github.com/shashiranjanraj/dorm/pkg/migration"
)

func init() {
	migration.Register("blog", "0001_initial", migration.Func{
		UpFn: func(db *gorm.DB) error {
			return db.AutoMigrate(
				&blog.Post{},
				&blog.Comment{},
			)
		},
		DownFn: func(db *gorm.DB) error {
			return db.Migrator().DropTable(
				&blog.Comment{},
				&blog.Post{},
			)
		},
	})
}
