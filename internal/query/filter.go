package query

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

// Filter 前端提交的过滤条件
type Filter struct {
	StrictMatch  bool       `json:"strict_match"`
	Time         [][]string `json:"time"`          // 下标为星期减一，元素为节次集合
	Department   []string   `json:"department"`    // 系所 ID
	Category     []string   `json:"category"`      // 领域 ID
	EnrollMethod []string   `json:"enroll_method"` // 加选方式，数字字符串
}

// Scope 调用方附加的范围限制
type Scope struct {
	IDs           []string // nil 表示不限制
	Semester      string   // 空表示不限制
	Keyword       string
	KeywordFields []string
}

// KeywordFields 允许关键字搜索的字段
var KeywordFields = []string{FieldName, FieldTeacher, FieldSerial, FieldCode, FieldIdentifier}

// ValidKeywordField 字段是否允许关键字搜索
func ValidKeywordField(field string) bool {
	return slices.Contains(KeywordFields, field)
}

// Compile 将过滤条件编译为条件树
//
// 顶层 And 依次包含：ID 白名单、加选方式、分面组合、学期、关键字。
// 分面（时段、系所、领域）在 StrictMatch 时以 And 组合，否则以 Or 组合；
// 没有任何分面时组合结果为 True，不会产生匹配不到任何课程的空 Or。
func Compile(f Filter, scope Scope) (Condition, error) {
	root := And{}

	if scope.IDs != nil {
		root = append(root, In{Field: FieldID, Values: Strings(scope.IDs)})
	}

	if f.EnrollMethod != nil {
		methods := make([]any, 0, len(f.EnrollMethod))
		for _, m := range f.EnrollMethod {
			n, err := strconv.Atoi(strings.TrimSpace(m))
			if err != nil {
				return nil, pkgerrors.Newf(pkgerrors.ErrValidation, "无效的加选方式: %q", m)
			}
			methods = append(methods, n)
		}
		root = append(root, In{Field: FieldEnrollMethod, Values: methods})
	}

	root = append(root, compileFacets(f))

	if scope.Semester != "" {
		root = append(root, Equals{Field: FieldSemester, Value: scope.Semester})
	}

	if scope.Keyword != "" {
		kw := Or{}
		for _, field := range scope.KeywordFields {
			if !ValidKeywordField(field) {
				return nil, pkgerrors.Newf(pkgerrors.ErrValidation, "无效的搜索字段: %q", field)
			}
			kw = append(kw, Contains{Field: field, Substr: scope.Keyword})
		}
		root = append(root, kw)
	}

	return root, nil
}

func compileFacets(f Filter) Condition {
	var facets []Condition

	if t := compileTime(f.Time); t != nil {
		facets = append(facets, t)
	}
	if len(f.Department) > 0 {
		facets = append(facets, Some{
			Relation: RelDepartments,
			Where:    In{Field: FieldDepartmentID, Values: Strings(f.Department)},
		})
	}
	if len(f.Category) > 0 {
		facets = append(facets, Some{
			Relation: RelAreas,
			Where:    In{Field: FieldAreaID, Values: Strings(f.Category)},
		})
	}

	switch {
	case len(facets) == 0:
		return True{}
	case f.StrictMatch:
		return And(facets)
	default:
		return Or(facets)
	}
}

// compileTime 各星期之间始终以 Or 组合，与 StrictMatch 无关
func compileTime(time [][]string) Condition {
	var slots Or
	for i, intervals := range time {
		if len(intervals) == 0 {
			continue
		}
		slots = append(slots, Some{
			Relation: RelSchedules,
			Where: And{
				Equals{Field: FieldWeekday, Value: i + 1},
				In{Field: FieldInterval, Values: Strings(intervals)},
			},
		})
	}
	if len(slots) == 0 {
		return nil
	}
	return slots
}

// String 输出条件树的可读形式，用于日志
func String(c Condition) string {
	var b strings.Builder
	writeCondition(&b, c)
	return b.String()
}

func writeCondition(b *strings.Builder, c Condition) {
	switch n := c.(type) {
	case And:
		writeList(b, "AND", n)
	case Or:
		writeList(b, "OR", n)
	case True:
		b.WriteString("TRUE")
	case In:
		fmt.Fprintf(b, "%s IN %v", n.Field, n.Values)
	case Equals:
		fmt.Fprintf(b, "%s = %v", n.Field, n.Value)
	case Contains:
		fmt.Fprintf(b, "%s CONTAINS %q", n.Field, n.Substr)
	case Some:
		fmt.Fprintf(b, "SOME %s(", n.Relation)
		writeCondition(b, n.Where)
		b.WriteString(")")
	default:
		fmt.Fprintf(b, "?%T", c)
	}
}

func writeList(b *strings.Builder, op string, items []Condition) {
	b.WriteString(op)
	b.WriteString("(")
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		writeCondition(b, item)
	}
	b.WriteString(")")
}
