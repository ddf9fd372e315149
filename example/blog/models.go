// Package blog is the example's only app.
package blog

import (
	"context"
	"time"

	"github.com/shashiranjanraj/dorm/pkg/logger"
	"github.com/shashiranjanraj/dorm/pkg/orm"
)

type Post struct {
	ID        uint64 `gorm:"primaryKey"`
	Title     string `gorm:"size:255;not null"`
	Body      string
	Published bool `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Comment struct {
	ID        uint64 `gorm:"primaryKey"`
	PostID    uint64 `gorm:"index;not null"`
	Author    string `gorm:"size:100"`
	Body      string
	CreatedAt time.Time
}

func init() {
	orm.RegisterApp("blog", &Post{}, &Comment{}).OnReady(func(_ context.Context, e *orm.Engine) error {
		logger.Debug("blog: ready", "search_path", e.SearchPath().String())
		return nil
	})
}
