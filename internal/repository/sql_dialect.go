package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// DialectName 获取数据库方言名称，默认按 sqlite 处理。
func DialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// quoteColumn 按方言引用列名，settings.key 在 mysql 中是保留字。
func quoteColumn(db *gorm.DB, column string) string {
	return quoteColumnByDialect(DialectName(db), column)
}

func quoteColumnByDialect(dialect, column string) string {
	trimmed := strings.TrimSpace(column)
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "mysql":
		return fmt.Sprintf("`%s`", strings.ReplaceAll(trimmed, "`", "``"))
	default:
		return fmt.Sprintf("\"%s\"", strings.ReplaceAll(trimmed, "\"", "\"\""))
	}
}
