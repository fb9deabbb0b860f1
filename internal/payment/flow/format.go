package flow

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LogChanges 将上下文的迁移历史渲染为人类可读的审计文本。
// 同一上下文渲染两次输出逐字节一致；不携带任何变更的迁移整块省略。
func LogChanges(c *PaymentContext) string {
	var b strings.Builder
	b.WriteString("Payment lifecycle for order ")
	if c.orderNo != "" {
		b.WriteString(c.orderNo)
	} else {
		b.WriteString(strconv.FormatUint(uint64(c.orderID), 10))
	}
	b.WriteString(":\n")
	for _, tr := range c.transitions {
		if len(tr.Changes) == 0 {
			continue
		}
		writeTransition(&b, tr)
	}
	return b.String()
}

func writeTransition(b *strings.Builder, tr Transition) {
	switch {
	case tr.FromState == "" && tr.ToState != "":
		fmt.Fprintf(b, "Payment initialized in '%s' {\n", tr.ToState)
	case tr.ToState == "":
		fmt.Fprintf(b, "Changes within '%s' {\n", tr.FromState)
	default:
		fmt.Fprintf(b, "Transition from '%s' to '%s' {\n", tr.FromState, tr.ToState)
	}
	for _, ch := range tr.Changes {
		if ch.Old == nil {
			fmt.Fprintf(b, "  Set %s to %s\n", ch.Field, renderValue(ch.New, 1))
		} else {
			fmt.Fprintf(b, "  Changed %s from %s to %s\n", ch.Field, renderValue(ch.Old, 1), renderValue(ch.New, 1))
		}
	}
	b.WriteString("}\n")
}

// renderValue 渲染变更值。标量直接内联，结构化值渲染为缩进的嵌套块，
// 映射按键名排序以保证输出确定性。
func renderValue(v interface{}, depth int) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case PaymentMethod:
		if val.IsZero() {
			return "null"
		}
		fields := map[string]interface{}{"type": val.source}
		if val.token != "" {
			fields["token"] = val.token
		}
		if val.savedID != "" {
			fields["id"] = val.savedID
		}
		return renderBlock(fields, depth)
	case map[string]string:
		fields := make(map[string]interface{}, len(val))
		for k, s := range val {
			fields[k] = s
		}
		return renderBlock(fields, depth)
	case map[string]interface{}:
		return renderBlock(val, depth)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func renderBlock(fields map[string]interface{}, depth int) string {
	if len(fields) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	indent := strings.Repeat("  ", depth+1)
	var b strings.Builder
	b.WriteString("{\n")
	for _, k := range keys {
		b.WriteString(indent)
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(renderValue(fields[k], depth+1))
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("}")
	return b.String()
}
