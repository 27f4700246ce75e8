// Package query 将课程搜索条件编译为与存储无关的条件树。
//
// 条件树只描述语义，由 repository 层翻译为 SQL，或由 Match 在内存中求值。
package query

// Condition 条件树节点
type Condition interface {
	isCondition()
}

// Relation 课程的一对多关联
type Relation string

const (
	RelSchedules   Relation = "schedules"   // 上课时段，字段 weekday / interval
	RelDepartments Relation = "departments" // 开课系所，字段 department_id
	RelAreas       Relation = "areas"       // 领域，字段 area_id
)

// 课程字段
const (
	FieldID           = "id"
	FieldSemester     = "semester"
	FieldName         = "name"
	FieldTeacher      = "teacher"
	FieldSerial       = "serial"
	FieldCode         = "code"
	FieldIdentifier   = "identifier"
	FieldEnrollMethod = "enroll_method"
)

// 关联字段
const (
	FieldWeekday      = "weekday"
	FieldInterval     = "interval"
	FieldDepartmentID = "department_id"
	FieldAreaID       = "area_id"
)

// And 全部子条件成立；空 And 恒真
type And []Condition

// Or 任一子条件成立；空 Or 恒假
type Or []Condition

// True 恒真
type True struct{}

// In 字段值属于 Values；Values 为空时恒假
type In struct {
	Field  string
	Values []any
}

// Equals 字段值等于 Value
type Equals struct {
	Field string
	Value any
}

// Contains 字符串字段包含 Substr（区分大小写）
type Contains struct {
	Field  string
	Substr string
}

// Some 存在一条关联记录满足 Where
type Some struct {
	Relation Relation
	Where    Condition
}

func (And) isCondition()      {}
func (Or) isCondition()       {}
func (True) isCondition()     {}
func (In) isCondition()       {}
func (Equals) isCondition()   {}
func (Contains) isCondition() {}
func (Some) isCondition()     {}

// Strings 将字符串切片转为 In 的取值
func Strings(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
