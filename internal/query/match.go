package query

import (
	"strconv"
	"strings"

	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
)

// lookup 按字段名取值，字段不存在时返回 false
type lookup func(field string) (any, bool)

// Match 在内存中对课程求值条件树
// 课程需已加载 Schedules、Departments、Areas 关联
func Match(c Condition, course *model.Course) bool {
	return eval(c, course, courseField(course))
}

func eval(c Condition, course *model.Course, get lookup) bool {
	switch n := c.(type) {
	case True:
		return true
	case And:
		for _, sub := range n {
			if !eval(sub, course, get) {
				return false
			}
		}
		return true
	case Or:
		for _, sub := range n {
			if eval(sub, course, get) {
				return true
			}
		}
		return false
	case In:
		v, ok := get(n.Field)
		if !ok {
			return false
		}
		for _, want := range n.Values {
			if equal(v, want) {
				return true
			}
		}
		return false
	case Equals:
		v, ok := get(n.Field)
		return ok && equal(v, n.Value)
	case Contains:
		v, ok := get(n.Field)
		if !ok {
			return false
		}
		s, isStr := v.(string)
		return isStr && strings.Contains(s, n.Substr)
	case Some:
		for _, row := range relationRows(course, n.Relation) {
			if eval(n.Where, course, row) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func courseField(c *model.Course) lookup {
	return func(field string) (any, bool) {
		switch field {
		case FieldID:
			return c.ID, true
		case FieldSemester:
			return c.Semester, true
		case FieldName:
			return c.Name, true
		case FieldTeacher:
			return c.Teacher, true
		case FieldSerial:
			return c.Serial, true
		case FieldCode:
			return c.Code, true
		case FieldIdentifier:
			return c.Identifier, true
		case FieldEnrollMethod:
			return c.EnrollMethod, true
		}
		return nil, false
	}
}

func relationRows(c *model.Course, rel Relation) []lookup {
	var rows []lookup
	switch rel {
	case RelSchedules:
		for _, s := range c.Schedules {
			rows = append(rows, func(field string) (any, bool) {
				switch field {
				case FieldWeekday:
					return s.Weekday, true
				case FieldInterval:
					return s.Interval, true
				}
				return nil, false
			})
		}
	case RelDepartments:
		for _, d := range c.Departments {
			rows = append(rows, func(field string) (any, bool) {
				if field == FieldDepartmentID {
					return d.DepartmentID, true
				}
				return nil, false
			})
		}
	case RelAreas:
		for _, a := range c.Areas {
			rows = append(rows, func(field string) (any, bool) {
				if field == FieldAreaID {
					return a.AreaID, true
				}
				return nil, false
			})
		}
	}
	return rows
}

// equal 整数与整数比较，其余按字符串形式比较
func equal(a, b any) bool {
	if x, ok := a.(int); ok {
		if y, ok := b.(int); ok {
			return x == y
		}
	}
	return toString(a) == toString(b)
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}
