package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
)

// Files 暴露所有 SQL 迁移文件。
//
//go:embed *.sql
var Files embed.FS

// Apply 按文件名顺序执行全部迁移。语句都写成幂等形式，
// 重复执行是安全的。
func Apply(db *sql.DB) error {
	entries, err := Files.ReadDir(".")
	if err != nil {
		return fmt.Errorf("读取迁移目录失败: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := Files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("读取迁移文件 %s 失败: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("执行迁移 %s 失败: %w", name, err)
		}
	}
	return nil
}
