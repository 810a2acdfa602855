package main

import (
	"fmt"
	"strings"

	"github.com/rzpsarthak13/rowmap/pkg/rowmap"
)

var (
	User = rowmap.MustDefine("User", "users",
		rowmap.String("id", rowmap.PrimaryKey(), rowmap.DDL("varchar(50)"), rowmap.DefaultFunc(rowmap.NextID)),
		rowmap.String("email", rowmap.DDL("varchar(50)")),
		rowmap.String("passwd", rowmap.DDL("varchar(50)")),
		rowmap.Boolean("admin"),
		rowmap.String("name", rowmap.DDL("varchar(50)")),
		rowmap.String("image", rowmap.DDL("varchar(500)")),
		rowmap.Float("created_at", rowmap.DefaultFunc(rowmap.Now)),
	)

	Blog = rowmap.MustDefine("Blog", "blogs",
		rowmap.String("id", rowmap.PrimaryKey(), rowmap.DDL("varchar(50)"), rowmap.DefaultFunc(rowmap.NextID)),
		rowmap.String("user_id", rowmap.DDL("varchar(50)")),
		rowmap.String("user_name", rowmap.DDL("varchar(50)")),
		rowmap.String("user_image", rowmap.DDL("varchar(500)")),
		rowmap.String("name", rowmap.DDL("varchar(50)")),
		rowmap.String("summary", rowmap.DDL("varchar(200)")),
		rowmap.Text("content"),
		rowmap.Float("created_at", rowmap.DefaultFunc(rowmap.Now)),
	)

	Comment = rowmap.MustDefine("Comment", "comments",
		rowmap.String("id", rowmap.PrimaryKey(), rowmap.DDL("varchar(50)"), rowmap.DefaultFunc(rowmap.NextID)),
		rowmap.String("blog_id", rowmap.DDL("varchar(50)")),
		rowmap.String("user_id", rowmap.DDL("varchar(50)")),
		rowmap.String("user_name", rowmap.DDL("varchar(50)")),
		rowmap.String("user_image", rowmap.DDL("varchar(500)")),
		rowmap.Text("content"),
		rowmap.Float("created_at", rowmap.DefaultFunc(rowmap.Now)),
	)
)

// createTableStmt renders a create table statement from the column types of s.
func createTableStmt(s *rowmap.Schema) string {
	columns := make([]string, 0, len(s.Columns()))
	for _, name := range s.Columns() {
		f, _ := s.Field(name)
		col := fmt.Sprintf("`%s` %s", name, f.SQLType())
		if f.IsPrimaryKey() {
			col += " primary key"
		}
		columns = append(columns, col)
	}
	return fmt.Sprintf("create table if not exists `%s` (%s)", s.Table(), strings.Join(columns, ", "))
}
