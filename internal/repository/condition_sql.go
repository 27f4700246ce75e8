package repository

import (
	"fmt"
	"strings"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/query"
)

// courseColumns 课程字段 → 列名白名单
var courseColumns = map[string]string{
	query.FieldID:           "courses.id",
	query.FieldSemester:     "courses.semester",
	query.FieldName:         "courses.name",
	query.FieldTeacher:      "courses.teacher",
	query.FieldSerial:       "courses.serial",
	query.FieldCode:         "courses.code",
	query.FieldIdentifier:   "courses.identifier",
	query.FieldEnrollMethod: "courses.enroll_method",
}

type relationTable struct {
	table   string
	columns map[string]string
}

// relationTables 关联 → 子表与列名白名单，子表别名固定为 r
var relationTables = map[query.Relation]relationTable{
	query.RelSchedules: {
		table: "course_schedules",
		columns: map[string]string{
			query.FieldWeekday:  "r.weekday",
			query.FieldInterval: "r.interval",
		},
	},
	query.RelDepartments: {
		table:   "course_departments",
		columns: map[string]string{query.FieldDepartmentID: "r.department_id"},
	},
	query.RelAreas: {
		table:   "course_areas",
		columns: map[string]string{query.FieldAreaID: "r.area_id"},
	},
}

// likeEscaper 转义 LIKE 通配符，配合 ESCAPE '\'
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// BuildCondition 将条件树翻译为 WHERE 子句与参数
func BuildCondition(c query.Condition) (string, []any, error) {
	b := &sqlBuilder{columns: courseColumns}
	if err := b.build(c); err != nil {
		return "", nil, err
	}
	return b.sb.String(), b.args, nil
}

type sqlBuilder struct {
	sb      strings.Builder
	args    []any
	columns map[string]string
	nested  bool
}

func (b *sqlBuilder) build(c query.Condition) error {
	switch n := c.(type) {
	case query.True:
		b.sb.WriteString("1 = 1")
	case query.And:
		return b.list(n, " AND ", "1 = 1")
	case query.Or:
		return b.list(n, " OR ", "1 = 0")
	case query.In:
		col, err := b.column(n.Field)
		if err != nil {
			return err
		}
		if len(n.Values) == 0 {
			b.sb.WriteString("1 = 0")
			return nil
		}
		b.sb.WriteString(col + " IN ?")
		b.args = append(b.args, n.Values)
	case query.Equals:
		col, err := b.column(n.Field)
		if err != nil {
			return err
		}
		b.sb.WriteString(col + " = ?")
		b.args = append(b.args, n.Value)
	case query.Contains:
		col, err := b.column(n.Field)
		if err != nil {
			return err
		}
		b.sb.WriteString(col + ` LIKE ? ESCAPE '\'`)
		b.args = append(b.args, "%"+likeEscaper.Replace(n.Substr)+"%")
	case query.Some:
		if b.nested {
			return fmt.Errorf("不支持嵌套的关联条件: %s", n.Relation)
		}
		rel, ok := relationTables[n.Relation]
		if !ok {
			return fmt.Errorf("未知关联: %s", n.Relation)
		}
		b.sb.WriteString("EXISTS (SELECT 1 FROM " + rel.table + " AS r WHERE r.course_id = courses.id AND (")
		outer := b.columns
		b.columns, b.nested = rel.columns, true
		err := b.build(n.Where)
		b.columns, b.nested = outer, false
		if err != nil {
			return err
		}
		b.sb.WriteString("))")
	default:
		return fmt.Errorf("未知条件节点: %T", c)
	}
	return nil
}

func (b *sqlBuilder) list(items []query.Condition, sep, empty string) error {
	if len(items) == 0 {
		b.sb.WriteString(empty)
		return nil
	}
	b.sb.WriteString("(")
	for i, item := range items {
		if i > 0 {
			b.sb.WriteString(sep)
		}
		if err := b.build(item); err != nil {
			return err
		}
	}
	b.sb.WriteString(")")
	return nil
}

func (b *sqlBuilder) column(field string) (string, error) {
	col, ok := b.columns[field]
	if !ok {
		return "", fmt.Errorf("字段 %q 不可用于查询", field)
	}
	return col, nil
}
