package tasks

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ソート対象として認識する項目名。これ以外が指定された場合は
// エラーにせず、ソートなしとして扱います。
const (
	sortFieldDescription = "description"
	sortFieldCompleted   = "completed"
	sortFieldCreatedAt   = "createdAt"
	sortFieldUpdatedAt   = "updatedAt"
)

// Criteria はタスク一覧の絞り込み・整列・ページング条件です。
// すべて省略可能な文字列パラメータから組み立てます。
type Criteria struct {
	completed *bool
	sortField string
	sortDesc  bool
	skip      int
	limit     int // 0は無制限
}

// ParseCriteria はクエリパラメータから Criteria を組み立てます。
// 不正な値はエラーにせず、その条件を無視します。
func ParseCriteria(values url.Values) Criteria {
	var cr Criteria

	// "true"/"false" のリテラルだけをフィルタとして解釈する
	switch values.Get("completed") {
	case "true":
		v := true
		cr.completed = &v
	case "false":
		v := false
		cr.completed = &v
	}

	if raw := values.Get("sortBy"); raw != "" {
		field, direction, _ := strings.Cut(raw, ":")
		switch field {
		case sortFieldDescription, sortFieldCompleted, sortFieldCreatedAt, sortFieldUpdatedAt:
			cr.sortField = field
			cr.sortDesc = direction == "desc"
		}
	}

	if raw := values.Get("skip"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cr.skip = v
		}
	}
	if raw := values.Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cr.limit = v
		}
	}

	return cr
}

// Apply は フィルタ → ソート → skip → limit の順で条件を適用します。
// この順序でないと、絞り込み済み・整列済みの集合に対する
// ページングが正しく機能しません。
func (cr Criteria) Apply(items []Task) []Task {
	result := make([]Task, 0, len(items))
	for _, t := range items {
		if cr.completed != nil && t.Completed != *cr.completed {
			continue
		}
		result = append(result, t)
	}

	if cr.sortField != "" {
		less := lessFunc(cr.sortField)
		sort.SliceStable(result, func(i, j int) bool {
			if cr.sortDesc {
				return less(result[j], result[i])
			}
			return less(result[i], result[j])
		})
	}

	if cr.skip > 0 {
		if cr.skip >= len(result) {
			return []Task{}
		}
		result = result[cr.skip:]
	}
	if cr.limit > 0 && cr.limit < len(result) {
		result = result[:cr.limit]
	}

	return result
}

func lessFunc(field string) func(a, b Task) bool {
	switch field {
	case sortFieldDescription:
		return func(a, b Task) bool { return a.Description < b.Description }
	case sortFieldCompleted:
		// 未完了 < 完了
		return func(a, b Task) bool { return !a.Completed && b.Completed }
	case sortFieldCreatedAt:
		return func(a, b Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return func(a, b Task) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	}
}
